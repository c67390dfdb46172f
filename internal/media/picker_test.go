package media

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/domain/schema"
)

// pngBytes — минимальное PNG-содержимое (сигнатура + заполнение),
// достаточное для сниффинга.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

// mp4Bytes — минимальное MP4-содержимое (ftyp box).
var mp4Bytes = append([]byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2"), make([]byte, 64)...)

// pdfBytes — PDF-содержимое для проверки отклонения по сниффингу.
var pdfBytes = append([]byte("%PDF-1.4\n"), make([]byte, 64)...)

func imageSlot() *schema.MediaSlot {
	return &schema.MediaSlot{
		Name:         "image",
		RefField:     "image",
		ClearField:   "remove_image",
		MaxSize:      1 << 20,
		AllowedTypes: []string{"image/*"},
	}
}

func gallerySlot() *schema.MediaSlot {
	return &schema.MediaSlot{
		Name:         "media",
		RefField:     "media_url",
		ClearField:   "remove_media",
		MaxSize:      10 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "video/mp4", "video/webm"},
		DerivesKind:  true,
		KindField:    "type",
	}
}

// waitPreview ждёт появления превью слота (декодирование асинхронно).
func waitPreview(t *testing.T, p *Picker, slot string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if preview := p.Preview(slot); preview != "" {
			return preview
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("превью не появилось за отведённое время")
	return ""
}

func TestStage_ValidImage(t *testing.T) {
	p := NewPicker()
	slot := imageSlot()

	staged, err := p.Stage(slot, "cover.png", "image/png", int64(len(pngBytes)), bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("валидный файл отклонён: %v", err)
	}
	if staged.Filename != "cover.png" || staged.ContentType != "image/png" {
		t.Errorf("неожиданные метаданные: %+v", staged)
	}
	if !p.Staged("image") {
		t.Error("слот должен содержать подготовленный файл")
	}

	preview := waitPreview(t, p, "image")
	if !strings.HasPrefix(preview, "data:image/png;base64,") {
		t.Errorf("превью должно быть data URL, получено %.40q", preview)
	}
}

func TestStage_SizeLimit(t *testing.T) {
	p := NewPicker()
	slot := imageSlot()
	slot.MaxSize = 16

	_, err := p.Stage(slot, "big.png", "image/png", int64(len(pngBytes)), bytes.NewReader(pngBytes))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ожидался *ValidationError, получено %v", err)
	}
	if verr.Rule != "size" {
		t.Errorf("ожидалось правило size, получено %q", verr.Rule)
	}
	if p.Staged("image") {
		t.Error("отклонение не должно менять состояние слота")
	}
}

func TestStage_UnderdeclaredSize(t *testing.T) {
	p := NewPicker()
	slot := imageSlot()
	slot.MaxSize = 32

	// Заявленный размер проходит лимит, фактический — нет
	_, err := p.Stage(slot, "liar.png", "image/png", 10, bytes.NewReader(pngBytes))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ожидался *ValidationError, получено %v", err)
	}
	if verr.Rule != "size" {
		t.Errorf("ожидалось правило size, получено %q", verr.Rule)
	}
}

func TestStage_DeclaredTypeRejected(t *testing.T) {
	p := NewPicker()

	_, err := p.Stage(imageSlot(), "doc.pdf", "application/pdf", int64(len(pdfBytes)), bytes.NewReader(pdfBytes))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ожидался *ValidationError, получено %v", err)
	}
	if verr.Rule != "type" {
		t.Errorf("ожидалось правило type, получено %q", verr.Rule)
	}
}

func TestStage_SniffedContentRejected(t *testing.T) {
	p := NewPicker()

	// Заявлен image/png, содержимое — PDF: сниффинг должен отклонить
	_, err := p.Stage(imageSlot(), "fake.png", "image/png", int64(len(pdfBytes)), bytes.NewReader(pdfBytes))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ожидался *ValidationError, получено %v", err)
	}
	if verr.Rule != "type" {
		t.Errorf("ожидалось правило type, получено %q", verr.Rule)
	}
}

func TestStage_DerivesKind(t *testing.T) {
	p := NewPicker()

	staged, err := p.Stage(gallerySlot(), "clip.mp4", "video/mp4", int64(len(mp4Bytes)), bytes.NewReader(mp4Bytes))
	if err != nil {
		t.Fatalf("валидное видео отклонено: %v", err)
	}
	if staged.DerivedKind != "video" {
		t.Errorf("ожидался производный тип video, получено %q", staged.DerivedKind)
	}

	staged, err = p.Stage(gallerySlot(), "photo.png", "image/png", int64(len(pngBytes)), bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("валидное изображение отклонено: %v", err)
	}
	if staged.DerivedKind != "image" {
		t.Errorf("ожидался производный тип image, получено %q", staged.DerivedKind)
	}
}

func TestReset_DropsStagedFile(t *testing.T) {
	p := NewPicker()
	slot := imageSlot()

	if _, err := p.Stage(slot, "cover.png", "image/png", int64(len(pngBytes)), bytes.NewReader(pngBytes)); err != nil {
		t.Fatalf("stage: %v", err)
	}
	waitPreview(t, p, "image")

	p.Reset("image")

	if p.Staged("image") || p.File("image") != nil {
		t.Error("reset должен убрать подготовленный файл")
	}
	if p.Preview("image") != "" {
		t.Error("reset должен убрать превью")
	}
	if p.Cleared("image") {
		t.Error("reset не должен помечать слот на удаление")
	}
}

func TestClear_MarksSlot(t *testing.T) {
	p := NewPicker()
	slot := imageSlot()

	if _, err := p.Stage(slot, "cover.png", "image/png", int64(len(pngBytes)), bytes.NewReader(pngBytes)); err != nil {
		t.Fatalf("stage: %v", err)
	}

	p.Clear("image")

	if p.Staged("image") {
		t.Error("clear должен убрать подготовленный файл")
	}
	if !p.Cleared("image") {
		t.Error("clear должен пометить слот на удаление")
	}

	// Повторный stage снимает пометку
	if _, err := p.Stage(slot, "new.png", "image/png", int64(len(pngBytes)), bytes.NewReader(pngBytes)); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if p.Cleared("image") {
		t.Error("stage должен снимать пометку clear")
	}
}

func TestApplyPreview_StaleGenerationIgnored(t *testing.T) {
	p := NewPicker()
	slot := imageSlot()

	if _, err := p.Stage(slot, "cover.png", "image/png", int64(len(pngBytes)), bytes.NewReader(pngBytes)); err != nil {
		t.Fatalf("stage: %v", err)
	}

	p.mu.Lock()
	gen := p.slots["image"].generation
	p.mu.Unlock()

	p.Reset("image")

	// Декодирование, завершившееся после reset, не должно воскресить превью
	p.applyPreview("image", gen, "data:image/png;base64,stale")

	if p.Preview("image") != "" {
		t.Error("устаревшее превью не должно применяться после reset")
	}
}

func TestApplyPreview_SupersededBySecondStage(t *testing.T) {
	p := NewPicker()
	slot := imageSlot()

	if _, err := p.Stage(slot, "first.png", "image/png", int64(len(pngBytes)), bytes.NewReader(pngBytes)); err != nil {
		t.Fatalf("stage: %v", err)
	}
	p.mu.Lock()
	firstGen := p.slots["image"].generation
	p.mu.Unlock()

	if _, err := p.Stage(slot, "second.png", "image/png", int64(len(pngBytes)), bytes.NewReader(pngBytes)); err != nil {
		t.Fatalf("stage: %v", err)
	}

	p.applyPreview("image", firstGen, "data:image/png;base64,first")

	preview := waitPreview(t, p, "image")
	if preview == "data:image/png;base64,first" {
		t.Error("превью первого файла не должно перекрывать второй stage")
	}
	if f := p.File("image"); f == nil || f.Filename != "second.png" {
		t.Errorf("в слоте должен остаться второй файл, получено %+v", f)
	}
}
