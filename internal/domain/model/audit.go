package model

import "time"

// Действия, фиксируемые в аудите отправок.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Исходы отправки.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditEntry — запись аудита отправки в content API.
// Хранится в таблице submission_audit.
type AuditEntry struct {
	// ID — UUID записи аудита
	ID string
	// Resource — имя коллекции (blog, camp, gallery, tour, destination)
	Resource string
	// RecordID — идентификатор записи на платформе (пустой, если создание провалилось)
	RecordID string
	// Action — действие (create, update, delete)
	Action string
	// Actor — пользователь дашборда, инициировавший отправку
	Actor string
	// Outcome — исход (success, failure)
	Outcome string
	// Message — сообщение об ошибке при неуспехе
	Message string
	// CreatedAt — время фиксации
	CreatedAt time.Time
}
