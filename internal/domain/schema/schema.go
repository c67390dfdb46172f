// Пакет schema — декларативные схемы полей редактируемых ресурсов.
// Одна обобщённая схема заменяет пять почти идентичных экранов дашборда:
// каждый ресурс описывается набором полей (тип, обязательность, значения
// по умолчанию) и медиа-слотами (ограничение размера, допустимые MIME-типы).
package schema

import "strings"

// FieldKind — тип поля редактируемой записи.
type FieldKind string

const (
	// KindText — скалярное текстовое поле.
	KindText FieldKind = "text"
	// KindNumber — числовое поле (в UI хранится как текст, приводится при отправке).
	KindNumber FieldKind = "number"
	// KindBool — булев флаг, кодируется строками "true"/"false".
	KindBool FieldKind = "bool"
	// KindEnum — строка из фиксированного набора значений.
	KindEnum FieldKind = "enum"
	// KindArray — массив строк: в UI — текст через запятую, на wire — JSON-массив.
	KindArray FieldKind = "array"
	// KindDate — дата; значения с сервера усекаются до date-only представления.
	KindDate FieldKind = "date"
)

// Field — описание одного поля ресурса.
type Field struct {
	// Name — имя поля (совпадает с именем multipart-поля на wire).
	Name string
	// Kind — тип поля.
	Kind FieldKind
	// Required — поле обязательно для отправки.
	Required bool
	// Options — допустимые значения (только для KindEnum).
	Options []string
	// Default — значение по умолчанию для create-потока.
	// Непустой Default означает, что поле всегда попадает в payload
	// (флаги и числа с конкретным значением по умолчанию).
	Default string
}

// HasOption проверяет, входит ли значение в набор допустимых (KindEnum).
func (f *Field) HasOption(value string) bool {
	for _, o := range f.Options {
		if o == value {
			return true
		}
	}
	return false
}

// MediaSlot — именованная точка прикрепления медиа на ресурсе.
// Слот держит либо сохранённую ссылку (путь на сервере), либо
// ожидающий отправки локальный файл — никогда оба как persisted.
type MediaSlot struct {
	// Name — имя слота (и имя file-поля multipart-запроса).
	Name string
	// RefField — имя поля записи сервера, содержащего сохранённую ссылку.
	RefField string
	// ClearField — имя multipart-поля, сигнализирующего серверу удалить
	// сохранённое медиа ("clear", в отличие от "reset").
	ClearField string
	// MaxSize — максимальный размер файла в байтах.
	MaxSize int64
	// AllowedTypes — допустимые MIME-типы. Поддерживается маска "image/*".
	AllowedTypes []string
	// RequiredOnCreate — в create-потоке отправка без файла запрещена.
	RequiredOnCreate bool
	// DerivesKind — слот определяет логический тип медиа (image/video)
	// по MIME-типу выбранного файла и записывает его в KindField.
	DerivesKind bool
	// KindField — имя поля записи, куда пишется производный тип медиа.
	KindField string
}

// TypeAllowed проверяет MIME-тип против allow-list слота.
// Маска вида "image/*" допускает любой подтип.
func (s *MediaSlot) TypeAllowed(contentType string) bool {
	// Отбрасываем параметры вида "; charset=..."
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))

	for _, allowed := range s.AllowedTypes {
		if allowed == contentType {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok &&
			strings.HasPrefix(contentType, prefix+"/") {
			return true
		}
	}
	return false
}

// Resource — схема одного редактируемого ресурса.
type Resource struct {
	// Name — имя ресурса в URL админки (blog, camp, gallery, tour, destination).
	Name string
	// APIPath — путь коллекции в content API (например, "/api/blogs").
	APIPath string
	// Fields — поля записи в порядке кодирования.
	Fields []Field
	// Slots — медиа-слоты ресурса.
	Slots []MediaSlot
}

// Field возвращает описание поля по имени.
func (r *Resource) Field(name string) (*Field, bool) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return &r.Fields[i], true
		}
	}
	return nil, false
}

// Slot возвращает медиа-слот по имени.
func (r *Resource) Slot(name string) (*MediaSlot, bool) {
	for i := range r.Slots {
		if r.Slots[i].Name == name {
			return &r.Slots[i], true
		}
	}
	return nil, false
}

// Get возвращает схему ресурса по имени.
func Get(name string) (*Resource, bool) {
	res, ok := registry[name]
	return res, ok
}

// Names возвращает имена всех зарегистрированных ресурсов.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, r := range ordered {
		names = append(names, r.Name)
	}
	return names
}
