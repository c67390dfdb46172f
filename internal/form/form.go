// Пакет form — состояние редактируемой записи одного экрана дашборда.
// Record хранит значения полей по имени, заполняется либо значениями
// по умолчанию (create), либо нормализованной записью сервера (edit),
// и вычисляет готовность к отправке из текущих значений.
package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/domain/schema"
)

// Record — редактируемая запись одного ресурса.
// Не потокобезопасен: владелец (editor session) сериализует доступ.
type Record struct {
	resource *schema.Resource
	values   map[string]string
	// stored — сохранённые ссылки медиа-слотов (пути на сервере).
	stored map[string]string
}

// New создаёт запись со значениями по умолчанию (create-поток).
func New(res *schema.Resource) *Record {
	values := make(map[string]string, len(res.Fields))
	for _, f := range res.Fields {
		if f.Default != "" {
			values[f.Name] = f.Default
		}
	}
	return &Record{
		resource: res,
		values:   values,
		stored:   make(map[string]string, len(res.Slots)),
	}
}

// FromServer создаёт запись из ответа content API (edit-поток).
// Значения нормализуются под UI-представление: массивы — в текст через
// запятую (с защитным приведением нестроковых элементов), числа и флаги —
// в строки, даты — усекаются до date-only.
func FromServer(res *schema.Resource, data map[string]any) *Record {
	r := New(res)

	for _, f := range res.Fields {
		raw, ok := data[f.Name]
		if !ok || raw == nil {
			continue
		}
		r.values[f.Name] = normalizeValue(&f, raw)
	}

	for _, s := range res.Slots {
		if raw, ok := data[s.RefField]; ok && raw != nil {
			if ref, isStr := raw.(string); isStr && ref != "" {
				r.stored[s.Name] = ref
			}
		}
	}

	return r
}

// normalizeValue приводит значение сервера к UI-представлению поля.
func normalizeValue(f *schema.Field, raw any) string {
	switch f.Kind {
	case schema.KindArray:
		return joinArray(raw)
	case schema.KindBool:
		if b, ok := raw.(bool); ok {
			return strconv.FormatBool(b)
		}
		return fmt.Sprintf("%v", raw)
	case schema.KindNumber:
		// encoding/json декодирует числа как float64
		if n, ok := raw.(float64); ok {
			if n == float64(int64(n)) {
				return strconv.FormatInt(int64(n), 10)
			}
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return fmt.Sprintf("%v", raw)
	case schema.KindDate:
		return trimDate(fmt.Sprintf("%v", raw))
	default:
		return fmt.Sprintf("%v", raw)
	}
}

// joinArray защитно приводит значение к массиву и склеивает через запятую.
// Сервер может вернуть null, строку или массив смешанных типов.
func joinArray(raw any) string {
	switch v := raw.(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s := strings.TrimSpace(fmt.Sprintf("%v", item))
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(v, ", ")
	case string:
		return v
	default:
		return ""
	}
}

// trimDate усекает timestamp вида "2024-05-01T12:30:00Z" до "2024-05-01".
func trimDate(s string) string {
	if i := strings.IndexByte(s, 'T'); i > 0 {
		return s[:i]
	}
	return s
}

// Resource возвращает схему записи.
func (r *Record) Resource() *schema.Resource {
	return r.resource
}

// Set заменяет значение одного поля, остальные не затрагиваются.
// Неизвестное поле или недопустимое значение enum — ошибка.
func (r *Record) Set(name, value string) error {
	f, ok := r.resource.Field(name)
	if !ok {
		return fmt.Errorf("неизвестное поле %q ресурса %q", name, r.resource.Name)
	}
	if f.Kind == schema.KindEnum && value != "" && !f.HasOption(value) {
		return fmt.Errorf("недопустимое значение %q поля %q: допустимые — %s",
			value, name, strings.Join(f.Options, ", "))
	}
	r.values[name] = value
	return nil
}

// Get возвращает текущее значение поля (пустая строка, если не задано).
func (r *Record) Get(name string) string {
	return r.values[name]
}

// Values возвращает копию всех непустых значений полей.
func (r *Record) Values() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// StoredRef возвращает сохранённую ссылку медиа-слота (edit-поток).
func (r *Record) StoredRef(slot string) string {
	return r.stored[slot]
}

// StoredRefs возвращает копию всех сохранённых ссылок медиа-слотов.
func (r *Record) StoredRefs() map[string]string {
	out := make(map[string]string, len(r.stored))
	for k, v := range r.stored {
		out[k] = v
	}
	return out
}

// StagedChecker сообщает, есть ли в слоте файл, подготовленный к отправке.
type StagedChecker interface {
	Staged(slot string) bool
}

// MissingFields возвращает имена обязательных полей без значения и —
// для create-потока — обязательных слотов без выбранного файла.
// Пустой результат означает готовность к отправке.
func (r *Record) MissingFields(staged StagedChecker, creating bool) []string {
	var missing []string
	for _, f := range r.resource.Fields {
		if f.Required && strings.TrimSpace(r.values[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	for _, s := range r.resource.Slots {
		if !s.RequiredOnCreate || !creating {
			continue
		}
		if staged == nil || !staged.Staged(s.Name) {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

// CanSubmit — чистая функция готовности к отправке; пересчитывается
// при каждом обращении, ничего не кэширует.
func (r *Record) CanSubmit(staged StagedChecker, creating bool) bool {
	return len(r.MissingFields(staged, creating)) == 0
}
