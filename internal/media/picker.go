// Пакет media — валидация и staging загружаемых файлов (Media Picker).
// Выбранный файл проверяется по размеру и MIME-типу (заявленный заголовок
// плюс сниффинг содержимого), после чего становится pending-файлом слота.
// Превью (data URL) строится асинхронно; устаревший результат декодирования
// отбрасывается по номеру поколения слота.
package media

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/domain/schema"
)

// StagedFile — файл, подготовленный к отправке в рамках текущей сессии.
type StagedFile struct {
	// Filename — оригинальное имя файла.
	Filename string
	// ContentType — подтверждённый MIME-тип (после сниффинга).
	ContentType string
	// Size — размер в байтах.
	Size int64
	// Data — содержимое файла.
	Data []byte
	// DerivedKind — производный логический тип медиа ("image"/"video"),
	// заполняется только для слотов с DerivesKind.
	DerivedKind string
}

// ValidationError — отклонение файла локальной валидацией.
// Сообщение называет файл и конкретное нарушенное правило;
// состояние слота при отклонении не меняется.
type ValidationError struct {
	// Filename — имя отклонённого файла.
	Filename string
	// Rule — нарушенное правило: "size" или "type".
	Rule string
	// Detail — человекочитаемое описание.
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("файл %q отклонён: %s", e.Filename, e.Detail)
}

// slotState — состояние одного медиа-слота.
type slotState struct {
	// generation увеличивается при каждом stage/reset/clear;
	// защищает от применения устаревшего превью.
	generation uint64
	file       *StagedFile
	preview    string
	// cleared — пользователь явно запросил удаление сохранённого медиа
	// при отправке (действие clear, в отличие от reset).
	cleared bool
}

// Picker — staging-состояние медиа-слотов одной сессии редактирования.
type Picker struct {
	mu    sync.Mutex
	slots map[string]*slotState
}

// NewPicker создаёт пустой Picker.
func NewPicker() *Picker {
	return &Picker{slots: make(map[string]*slotState)}
}

// Stage валидирует и подготавливает файл для слота.
// При нарушении правил возвращает *ValidationError, не меняя слот.
// При успехе запускает асинхронное построение превью.
func (p *Picker) Stage(slot *schema.MediaSlot, filename string, contentType string, size int64, r io.Reader) (*StagedFile, error) {
	// 1. Размер
	if size > slot.MaxSize {
		return nil, &ValidationError{
			Filename: filename,
			Rule:     "size",
			Detail:   fmt.Sprintf("размер %d байт превышает лимит %d байт", size, slot.MaxSize),
		}
	}

	// 2. Заявленный MIME-тип
	if contentType != "" && !slot.TypeAllowed(contentType) {
		return nil, &ValidationError{
			Filename: filename,
			Rule:     "type",
			Detail:   fmt.Sprintf("недопустимый тип %q", contentType),
		}
	}

	// 3. Читаем содержимое (лимит уже проверен по заявленному размеру,
	// дочитываем с запасом в один байт для обнаружения занижения).
	data, err := io.ReadAll(io.LimitReader(r, slot.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("чтение файла %q: %w", filename, err)
	}
	if int64(len(data)) > slot.MaxSize {
		return nil, &ValidationError{
			Filename: filename,
			Rule:     "size",
			Detail:   fmt.Sprintf("размер превышает лимит %d байт", slot.MaxSize),
		}
	}

	// 4. Сниффинг содержимого — заявленному заголовку не доверяем.
	// Сниффер может вернуть синоним заявленного типа (video/quicktime
	// вместо video/mov), поэтому содержимое проверяется по семейству
	// (image/video), а точный allow-list — по заявленному заголовку выше.
	sniffed := mimetype.Detect(data).String()
	if !familyAllowed(slot, sniffed) {
		return nil, &ValidationError{
			Filename: filename,
			Rule:     "type",
			Detail:   fmt.Sprintf("содержимое определено как %q — тип не разрешён", sniffed),
		}
	}

	effectiveType := contentType
	if effectiveType == "" {
		effectiveType = sniffed
	}

	staged := &StagedFile{
		Filename:    filename,
		ContentType: effectiveType,
		Size:        int64(len(data)),
		Data:        data,
	}
	if slot.DerivesKind {
		staged.DerivedKind = kindFromContentType(sniffed)
	}

	p.mu.Lock()
	st := p.slot(slot.Name)
	st.generation++
	st.file = staged
	st.preview = ""
	st.cleared = false
	gen := st.generation
	p.mu.Unlock()

	// Асинхронное декодирование в data URL — единственная
	// suspension-точка workflow помимо сетевых запросов.
	go p.decodePreview(slot.Name, gen, staged)

	return staged, nil
}

// decodePreview строит data URL и применяет его, если слот не изменился.
func (p *Picker) decodePreview(slotName string, gen uint64, f *StagedFile) {
	dataURL := "data:" + f.ContentType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
	p.applyPreview(slotName, gen, dataURL)
}

// applyPreview применяет готовое превью только к актуальному поколению слота.
// Декодирование, завершившееся после reset/clear/повторного stage,
// не воскрешает устаревшее превью.
func (p *Picker) applyPreview(slotName string, gen uint64, dataURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.slots[slotName]
	if !ok || st.generation != gen || st.file == nil {
		return
	}
	st.preview = dataURL
}

// Reset убирает pending-файл и превью слота.
// Сохранённая на сервере ссылка не затрагивается при отправке.
func (p *Picker) Reset(slotName string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.slot(slotName)
	st.generation++
	st.file = nil
	st.preview = ""
	st.cleared = false
}

// Clear убирает pending-файл и помечает слот на удаление сохранённого
// медиа при отправке. Явное действие, отличное от Reset.
func (p *Picker) Clear(slotName string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.slot(slotName)
	st.generation++
	st.file = nil
	st.preview = ""
	st.cleared = true
}

// Staged сообщает, есть ли в слоте подготовленный файл.
// Реализует form.StagedChecker.
func (p *Picker) Staged(slotName string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.slots[slotName]
	return ok && st.file != nil
}

// File возвращает подготовленный файл слота (nil, если нет).
func (p *Picker) File(slotName string) *StagedFile {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.slots[slotName]
	if !ok {
		return nil
	}
	return st.file
}

// Preview возвращает data URL превью слота (пустая строка, пока
// декодирование не завершилось или файла нет).
func (p *Picker) Preview(slotName string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.slots[slotName]
	if !ok {
		return ""
	}
	return st.preview
}

// Cleared сообщает, помечен ли слот на удаление сохранённого медиа.
func (p *Picker) Cleared(slotName string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.slots[slotName]
	return ok && st.cleared
}

// slot возвращает состояние слота, создавая его при необходимости.
// Вызывается под mu.
func (p *Picker) slot(name string) *slotState {
	st, ok := p.slots[name]
	if !ok {
		st = &slotState{}
		p.slots[name] = st
	}
	return st
}

// familyAllowed проверяет, принадлежит ли MIME-тип к одному из семейств
// (image, video, ...) allow-list слота.
func familyAllowed(slot *schema.MediaSlot, contentType string) bool {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	family, _, ok := strings.Cut(strings.TrimSpace(contentType), "/")
	if !ok {
		return false
	}
	for _, allowed := range slot.AllowedTypes {
		if strings.HasPrefix(allowed, family+"/") {
			return true
		}
	}
	return false
}

// kindFromContentType выводит логический тип медиа из MIME-типа.
func kindFromContentType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	default:
		return ""
	}
}
