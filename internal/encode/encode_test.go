package encode

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"slices"
	"strings"
	"testing"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/domain/schema"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/form"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/media"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

var mp4Bytes = append([]byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2"), make([]byte, 64)...)

// part — одна часть разобранного multipart-тела.
type part struct {
	name        string
	filename    string
	contentType string
	value       string
}

// parsePayload разбирает multipart-тело обратно в упорядоченный список частей.
func parsePayload(t *testing.T, p *Payload) []part {
	t.Helper()

	_, params, err := mime.ParseMediaType(p.ContentType())
	if err != nil {
		t.Fatalf("разбор Content-Type: %v", err)
	}

	r := multipart.NewReader(bytes.NewReader(p.Bytes()), params["boundary"])
	var parts []part
	for {
		mp, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("чтение части: %v", err)
		}
		data, err := io.ReadAll(mp)
		if err != nil {
			t.Fatalf("чтение содержимого части: %v", err)
		}
		parts = append(parts, part{
			name:        mp.FormName(),
			filename:    mp.FileName(),
			contentType: mp.Header.Get("Content-Type"),
			value:       string(data),
		})
	}
	return parts
}

func fieldValue(t *testing.T, parts []part, name string) string {
	t.Helper()
	for _, p := range parts {
		if p.name == name && p.filename == "" {
			return p.value
		}
	}
	t.Fatalf("поле %q отсутствует в payload", name)
	return ""
}

func hasField(parts []part, name string) bool {
	for _, p := range parts {
		if p.name == name {
			return true
		}
	}
	return false
}

func mustResource(t *testing.T, name string) *schema.Resource {
	t.Helper()
	res, ok := schema.Get(name)
	if !ok {
		t.Fatalf("ресурс %q не зарегистрирован", name)
	}
	return res
}

func stage(t *testing.T, p *media.Picker, res *schema.Resource, slotName, filename, contentType string, data []byte) {
	t.Helper()
	slot, ok := res.Slot(slotName)
	if !ok {
		t.Fatalf("слот %q не найден", slotName)
	}
	if _, err := p.Stage(slot, filename, contentType, int64(len(data)), bytes.NewReader(data)); err != nil {
		t.Fatalf("stage %q: %v", filename, err)
	}
}

func TestSubmission_BlogCreateMinimal(t *testing.T) {
	res := mustResource(t, "blog")
	rec := form.New(res)
	rec.Set("title", "Большая миграция")
	rec.Set("slug", "great-migration")
	rec.Set("content", "Текст поста")

	payload, err := Submission(rec, media.NewPicker(), false)
	if err != nil {
		t.Fatalf("кодирование: %v", err)
	}
	parts := parsePayload(t, payload)

	if got := fieldValue(t, parts, "title"); got != "Большая миграция" {
		t.Errorf("title: получено %q", got)
	}

	// Пустые опциональные скаляры опускаются целиком
	for _, name := range []string{"excerpt", "author_name", "category", "status", "read_time", "published_at"} {
		if hasField(parts, name) {
			t.Errorf("пустое опциональное поле %q не должно кодироваться", name)
		}
	}

	// Пустой массив при create опускается
	if hasField(parts, "tags") {
		t.Error("пустой массив tags не должен кодироваться при create")
	}

	// Флаги и числа с дефолтом кодируются всегда
	if got := fieldValue(t, parts, "featured"); got != "false" {
		t.Errorf("featured: ожидалось false, получено %q", got)
	}
	if got := fieldValue(t, parts, "priority"); got != "0" {
		t.Errorf("priority: ожидалось 0, получено %q", got)
	}

	// Файлы не выбирались — file-частей нет
	for _, p := range parts {
		if p.filename != "" {
			t.Errorf("неожиданная file-часть %q", p.name)
		}
	}
}

func TestSubmission_ArrayEncoding(t *testing.T) {
	res := mustResource(t, "blog")
	rec := form.New(res)
	rec.Set("title", "t")
	rec.Set("slug", "s")
	rec.Set("content", "c")
	rec.Set("tags", "a, b ,, c")

	payload, err := Submission(rec, media.NewPicker(), false)
	if err != nil {
		t.Fatalf("кодирование: %v", err)
	}
	parts := parsePayload(t, payload)

	if got := fieldValue(t, parts, "tags"); got != `["a","b","c"]` {
		t.Errorf("tags: ожидалось %q, получено %q", `["a","b","c"]`, got)
	}
}

func TestSubmission_EmptyArrayOnEdit(t *testing.T) {
	res := mustResource(t, "blog")
	rec := form.FromServer(res, map[string]any{
		"title":   "t",
		"slug":    "s",
		"content": "c",
		"tags":    []any{"old"},
	})
	rec.Set("tags", "")

	payload, err := Submission(rec, media.NewPicker(), true)
	if err != nil {
		t.Fatalf("кодирование: %v", err)
	}
	parts := parsePayload(t, payload)

	// При edit пустой массив кодируется явным "[]" для очистки на сервере
	if got := fieldValue(t, parts, "tags"); got != "[]" {
		t.Errorf("tags: ожидалось [], получено %q", got)
	}
}

func TestSubmission_NumberCoercion(t *testing.T) {
	res := mustResource(t, "tour")
	rec := form.New(res)
	rec.Set("title", "Серенгети")
	rec.Set("duration", "abc")
	rec.Set("price", "199.5")

	payload, err := Submission(rec, media.NewPicker(), false)
	if err != nil {
		t.Fatalf("кодирование: %v", err)
	}
	parts := parsePayload(t, payload)

	if got := fieldValue(t, parts, "duration"); got != "0" {
		t.Errorf("нечисловое значение должно приводиться к 0, получено %q", got)
	}
	if got := fieldValue(t, parts, "price"); got != "199.5" {
		t.Errorf("price: получено %q", got)
	}
}

func TestSubmission_StagedFilePart(t *testing.T) {
	res := mustResource(t, "camp")
	rec := form.New(res)
	rec.Set("name", "Кемп у реки")
	rec.Set("location", "Мара")

	picker := media.NewPicker()
	stage(t, picker, res, "image", "camp.png", "image/png", pngBytes)

	payload, err := Submission(rec, picker, false)
	if err != nil {
		t.Fatalf("кодирование: %v", err)
	}
	parts := parsePayload(t, payload)

	idx := slices.IndexFunc(parts, func(p part) bool { return p.filename != "" })
	if idx < 0 {
		t.Fatal("file-часть отсутствует")
	}
	fp := parts[idx]
	if fp.name != "image" || fp.filename != "camp.png" {
		t.Errorf("неожиданная file-часть: name=%q filename=%q", fp.name, fp.filename)
	}
	if fp.contentType != "image/png" {
		t.Errorf("Content-Type file-части: ожидалось image/png, получено %q", fp.contentType)
	}
	if !bytes.Equal([]byte(fp.value), pngBytes) {
		t.Error("содержимое file-части не совпадает с исходным")
	}
}

func TestSubmission_ClearedSlotMarker(t *testing.T) {
	res := mustResource(t, "camp")
	rec := form.FromServer(res, map[string]any{
		"name":     "Кемп",
		"location": "Мара",
		"image":    "uploads/camp/old.jpg",
	})

	picker := media.NewPicker()
	picker.Clear("image")

	payload, err := Submission(rec, picker, true)
	if err != nil {
		t.Fatalf("кодирование: %v", err)
	}
	parts := parsePayload(t, payload)

	if got := fieldValue(t, parts, "remove_image"); got != "true" {
		t.Errorf("маркер очистки: ожидалось true, получено %q", got)
	}
}

func TestSubmission_GalleryDerivedKind(t *testing.T) {
	res := mustResource(t, "gallery")
	rec := form.New(res)
	rec.Set("title", "Закат")
	rec.Set("category", "landscape")

	picker := media.NewPicker()
	stage(t, picker, res, "media", "clip.mp4", "video/mp4", mp4Bytes)

	payload, err := Submission(rec, picker, false)
	if err != nil {
		t.Fatalf("кодирование: %v", err)
	}
	parts := parsePayload(t, payload)

	// Тип выводится из MIME выбранного файла и кодируется всегда
	if got := fieldValue(t, parts, "type"); got != "video" {
		t.Errorf("type: ожидалось video, получено %q", got)
	}
}

func TestSubmission_GalleryNoKindFails(t *testing.T) {
	res := mustResource(t, "gallery")
	rec := form.New(res)
	rec.Set("title", "Закат")
	rec.Set("category", "landscape")

	// Ни выбранного файла, ни сохранённого типа — кодирование прерывается
	_, err := Submission(rec, media.NewPicker(), true)
	if !errors.Is(err, ErrNoMediaKind) {
		t.Fatalf("ожидалась ErrNoMediaKind, получено %v", err)
	}
}

func TestSubmission_GalleryStoredKindKept(t *testing.T) {
	res := mustResource(t, "gallery")
	rec := form.FromServer(res, map[string]any{
		"title":    "Закат",
		"category": "landscape",
		"type":     "image",
	})

	payload, err := Submission(rec, media.NewPicker(), true)
	if err != nil {
		t.Fatalf("кодирование: %v", err)
	}
	parts := parsePayload(t, payload)

	if got := fieldValue(t, parts, "type"); got != "image" {
		t.Errorf("сохранённый тип должен кодироваться, получено %q", got)
	}
}

func TestSubmission_Deterministic(t *testing.T) {
	res := mustResource(t, "blog")
	rec := form.New(res)
	rec.Set("title", "Пост")
	rec.Set("slug", "post")
	rec.Set("content", "Текст")
	rec.Set("tags", "lions, safari")

	picker := media.NewPicker()

	first, err := Submission(rec, picker, false)
	if err != nil {
		t.Fatalf("первое кодирование: %v", err)
	}
	second, err := Submission(rec, picker, false)
	if err != nil {
		t.Fatalf("второе кодирование: %v", err)
	}

	// Повторное кодирование той же записи даёт тот же набор частей
	// в том же порядке (различается только multipart boundary).
	p1, p2 := parsePayload(t, first), parsePayload(t, second)
	if !slices.Equal(p1, p2) {
		t.Errorf("повторное кодирование дало другой payload:\n%v\n%v", p1, p2)
	}
}

func TestSubmission_EditWithoutChanges(t *testing.T) {
	res := mustResource(t, "blog")
	rec := form.FromServer(res, map[string]any{
		"title":          "Большая миграция",
		"slug":           "great-migration",
		"content":        "Текст поста",
		"excerpt":        "Анонс",
		"category":       "wildlife",
		"status":         "published",
		"tags":           []any{"lions", "safari"},
		"featured":       true,
		"priority":       float64(3),
		"read_time":      float64(7),
		"featured_image": "uploads/blog/cover.jpg",
	})

	payload, err := Submission(rec, media.NewPicker(), true)
	if err != nil {
		t.Fatalf("кодирование: %v", err)
	}
	parts := parsePayload(t, payload)

	// Отправка без изменений воспроизводит значения сервера как есть
	want := map[string]string{
		"title":     "Большая миграция",
		"slug":      "great-migration",
		"content":   "Текст поста",
		"excerpt":   "Анонс",
		"category":  "wildlife",
		"status":    "published",
		"tags":      `["lions","safari"]`,
		"featured":  "true",
		"priority":  "3",
		"read_time": "7",
	}
	for name, value := range want {
		if got := fieldValue(t, parts, name); got != value {
			t.Errorf("поле %q: ожидалось %q, получено %q", name, value, got)
		}
	}

	// Файл не выбирался — ни file-частей, ни маркеров очистки
	for _, p := range parts {
		if p.filename != "" {
			t.Errorf("неожиданная file-часть %q", p.name)
		}
		if strings.HasPrefix(p.name, "remove_") {
			t.Errorf("неожиданный маркер очистки %q", p.name)
		}
	}
}

func TestSplitArray(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a, b ,, c", []string{"a", "b", "c"}},
		{"", []string{}},
		{" , ", []string{}},
		{"single", []string{"single"}},
	}

	for _, tt := range tests {
		got := SplitArray(tt.in)
		if !slices.Equal(got, tt.want) {
			t.Errorf("SplitArray(%q) = %v, ожидалось %v", tt.in, got, tt.want)
		}
		if got == nil {
			t.Errorf("SplitArray(%q) вернул nil", tt.in)
		}
	}
}
