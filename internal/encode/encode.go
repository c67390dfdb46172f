// Пакет encode — кодирование редактируемой записи в multipart-запрос
// (Submission Encoder). Чистое преобразование: запись + подготовленные
// файлы → тело запроса к content API. Порядок полей фиксирован схемой,
// поэтому результат детерминирован с точностью до multipart boundary.
package encode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/domain/schema"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/form"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/media"
)

// ErrNoMediaKind — у слота с производным типом медиа нет ни производного,
// ни ранее сохранённого типа. Отправка прерывается локально, без
// сетевого запроса.
var ErrNoMediaKind = errors.New("не определён тип медиа (image/video)")

// Payload — закодированное multipart-тело запроса.
type Payload struct {
	body        []byte
	contentType string
}

// Body возвращает reader тела запроса.
func (p *Payload) Body() io.Reader {
	return bytes.NewReader(p.body)
}

// Bytes возвращает байты тела запроса.
func (p *Payload) Bytes() []byte {
	return p.body
}

// ContentType возвращает значение заголовка Content-Type (с boundary).
func (p *Payload) ContentType() string {
	return p.contentType
}

// Submission кодирует запись и staged-файлы в multipart-запрос.
// editing=true — PUT-поток (partial update): пустые массивы кодируются
// явным "[]" для очистки ранее сохранённых значений.
//
// Правила кодирования:
//   - скаляры — как есть; пустые опциональные поля опускаются целиком;
//   - флаги — всегда, строками "true"/"false";
//   - числа — приведение с fallback 0; поля без значения по умолчанию
//     опускаются, когда пусты;
//   - массивы — текст через запятую → JSON-массив строк;
//   - файлы — только слоты, в которые файл выбран в этой сессии;
//   - очищенные слоты — маркерное поле ClearField="true".
func Submission(rec *form.Record, picker *media.Picker, editing bool) (*Payload, error) {
	res := rec.Resource()

	// Производные типы медиа (gallery: image/video из MIME выбранного файла).
	// Тип обязателен при отправке — его отсутствие прерывает кодирование.
	kindOverrides := make(map[string]string)
	for _, slot := range res.Slots {
		if !slot.DerivesKind {
			continue
		}
		kind := rec.Get(slot.KindField)
		if f := picker.File(slot.Name); f != nil && f.DerivedKind != "" {
			kind = f.DerivedKind
		}
		if kind == "" {
			return nil, fmt.Errorf("слот %q: %w", slot.Name, ErrNoMediaKind)
		}
		kindOverrides[slot.KindField] = kind
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range res.Fields {
		value := rec.Get(f.Name)
		if kind, ok := kindOverrides[f.Name]; ok {
			value = kind
		}

		switch f.Kind {
		case schema.KindBool:
			if value == "" {
				value = f.Default
			}
			if value == "" {
				value = "false"
			}
			if err := w.WriteField(f.Name, value); err != nil {
				return nil, fmt.Errorf("поле %q: %w", f.Name, err)
			}

		case schema.KindNumber:
			if value == "" && f.Default == "" && !f.Required {
				continue
			}
			if err := w.WriteField(f.Name, coerceNumber(value)); err != nil {
				return nil, fmt.Errorf("поле %q: %w", f.Name, err)
			}

		case schema.KindArray:
			entries := SplitArray(value)
			if !editing && len(entries) == 0 {
				continue
			}
			encoded, err := json.Marshal(entries)
			if err != nil {
				return nil, fmt.Errorf("поле %q: %w", f.Name, err)
			}
			if err := w.WriteField(f.Name, string(encoded)); err != nil {
				return nil, fmt.Errorf("поле %q: %w", f.Name, err)
			}

		default:
			// text, enum, date: пустое опциональное поле опускается,
			// чтобы сервер сохранил прежнее значение при edit.
			// Производный тип медиа включается всегда.
			_, forced := kindOverrides[f.Name]
			if value == "" && !f.Required && !forced {
				continue
			}
			if err := w.WriteField(f.Name, value); err != nil {
				return nil, fmt.Errorf("поле %q: %w", f.Name, err)
			}
		}
	}

	// Файлы: только staged в этой сессии; сохранённые ссылки
	// повторно не загружаются.
	for _, slot := range res.Slots {
		if staged := picker.File(slot.Name); staged != nil {
			if err := writeFilePart(w, &slot, staged); err != nil {
				return nil, err
			}
			continue
		}
		if picker.Cleared(slot.Name) {
			if err := w.WriteField(slot.ClearField, "true"); err != nil {
				return nil, fmt.Errorf("поле %q: %w", slot.ClearField, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("закрытие multipart writer: %w", err)
	}

	return &Payload{
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, nil
}

// writeFilePart пишет file-part с корректным Content-Type
// (CreateFormFile всегда ставит application/octet-stream).
func writeFilePart(w *multipart.Writer, slot *schema.MediaSlot, f *media.StagedFile) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, slot.Name, f.Filename))
	h.Set("Content-Type", f.ContentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("слот %q: %w", slot.Name, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("слот %q: запись содержимого: %w", slot.Name, err)
	}
	return nil
}

// SplitArray разбирает UI-представление массива: разделение по запятым,
// обрезка пробелов, отбрасывание пустых сегментов.
// Результат никогда не nil — пустой ввод кодируется как [].
func SplitArray(s string) []string {
	entries := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			entries = append(entries, part)
		}
	}
	return entries
}

// coerceNumber приводит UI-значение к числу с fallback 0.
func coerceNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0"
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return "0"
}
