package schema

import (
	"slices"
	"testing"
)

func TestGet_KnownResources(t *testing.T) {
	for _, name := range []string{"blog", "camp", "gallery", "tour", "destination"} {
		res, ok := Get(name)
		if !ok {
			t.Fatalf("ресурс %q не зарегистрирован", name)
		}
		if res.Name != name {
			t.Errorf("ожидалось имя %q, получено %q", name, res.Name)
		}
		if res.APIPath == "" {
			t.Errorf("ресурс %q: пустой APIPath", name)
		}
		if len(res.Fields) == 0 {
			t.Errorf("ресурс %q: нет полей", name)
		}
		if len(res.Slots) == 0 {
			t.Errorf("ресурс %q: нет медиа-слотов", name)
		}
	}
}

func TestGet_UnknownResource(t *testing.T) {
	if _, ok := Get("users"); ok {
		t.Error("ожидалось отсутствие ресурса users")
	}
}

func TestNames_StableOrder(t *testing.T) {
	want := []string{"blog", "camp", "gallery", "tour", "destination"}
	got := Names()
	if !slices.Equal(got, want) {
		t.Errorf("ожидался порядок %v, получен %v", want, got)
	}
}

func TestResourceFieldLookup(t *testing.T) {
	res, _ := Get("blog")

	f, ok := res.Field("title")
	if !ok {
		t.Fatal("поле title не найдено")
	}
	if !f.Required {
		t.Error("поле title должно быть обязательным")
	}

	if _, ok := res.Field("nonexistent"); ok {
		t.Error("ожидалось отсутствие поля nonexistent")
	}
}

func TestResourceSlotLookup(t *testing.T) {
	res, _ := Get("gallery")

	slot, ok := res.Slot("media")
	if !ok {
		t.Fatal("слот media не найден")
	}
	if !slot.RequiredOnCreate {
		t.Error("слот media должен быть обязательным при создании")
	}
	if !slot.DerivesKind || slot.KindField != "type" {
		t.Errorf("слот media должен выводить тип в поле type, получено DerivesKind=%v KindField=%q",
			slot.DerivesKind, slot.KindField)
	}

	if _, ok := res.Slot("avatar"); ok {
		t.Error("ожидалось отсутствие слота avatar")
	}
}

func TestFieldHasOption(t *testing.T) {
	res, _ := Get("camp")
	f, _ := res.Field("category")

	if !f.HasOption("lodge") {
		t.Error("значение lodge должно быть допустимым")
	}
	if f.HasOption("hotel") {
		t.Error("значение hotel не должно быть допустимым")
	}
}

func TestMediaSlotTypeAllowed(t *testing.T) {
	imageSlot := &MediaSlot{AllowedTypes: []string{"image/*"}}
	gallerySlot := &MediaSlot{AllowedTypes: []string{
		"image/jpeg", "image/png", "video/mp4", "video/webm",
	}}

	tests := []struct {
		name        string
		slot        *MediaSlot
		contentType string
		want        bool
	}{
		{"маска image/* допускает jpeg", imageSlot, "image/jpeg", true},
		{"маска image/* допускает webp", imageSlot, "image/webp", true},
		{"маска image/* отклоняет видео", imageSlot, "video/mp4", false},
		{"маска image/* отклоняет pdf", imageSlot, "application/pdf", false},
		{"точный тип допускается", gallerySlot, "video/mp4", true},
		{"точный тип отклоняет ogg", gallerySlot, "video/ogg", false},
		{"параметры заголовка отбрасываются", gallerySlot, "image/png; charset=binary", true},
		{"регистр не важен", gallerySlot, "IMAGE/PNG", true},
		{"пустой тип отклоняется", gallerySlot, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.slot.TypeAllowed(tt.contentType); got != tt.want {
				t.Errorf("TypeAllowed(%q) = %v, ожидалось %v", tt.contentType, got, tt.want)
			}
		})
	}
}
