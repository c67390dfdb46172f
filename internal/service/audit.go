// audit.go — сервис аудита отправок.
// Каждая попытка create/update/delete в content API фиксируется
// в submission_audit независимо от исхода.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/domain/model"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/repository"
)

// AuditService — сервис аудита отправок.
type AuditService struct {
	repo   repository.AuditRepository
	logger *slog.Logger
}

// NewAuditService создаёт сервис аудита.
func NewAuditService(repo repository.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger.With(slog.String("component", "audit_service")),
	}
}

// Record фиксирует попытку отправки.
// Ошибка записи аудита логируется, но не прерывает основной поток:
// результат отправки пользователю важнее записи в журнал.
func (s *AuditService) Record(ctx context.Context, resource, recordID, action, actor, outcome, message string) {
	entry := &model.AuditEntry{
		ID:       uuid.New().String(),
		Resource: resource,
		RecordID: recordID,
		Action:   action,
		Actor:    actor,
		Outcome:  outcome,
		Message:  message,
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Error("Не удалось записать аудит отправки",
			slog.String("resource", resource),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Debug("Отправка зафиксирована в аудите",
		slog.String("resource", resource),
		slog.String("action", action),
		slog.String("outcome", outcome),
	)
}

// List возвращает записи аудита с фильтрацией и пагинацией.
func (s *AuditService) List(ctx context.Context, filters repository.AuditFilters, limit, offset int) ([]*model.AuditEntry, int, error) {
	entries, err := s.repo.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
