package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/domain/model"
)

// AuditRepository — интерфейс доступа к таблице submission_audit.
type AuditRepository interface {
	// Insert создаёт новую запись аудита.
	Insert(ctx context.Context, e *model.AuditEntry) error
	// List возвращает записи аудита с фильтрацией, новые первыми.
	List(ctx context.Context, filters AuditFilters, limit, offset int) ([]*model.AuditEntry, error)
	// Count возвращает количество записей с фильтрацией.
	Count(ctx context.Context, filters AuditFilters) (int, error)
}

// AuditFilters — фильтры для списка записей аудита.
type AuditFilters struct {
	Resource *string
	Action   *string
	Actor    *string
	Outcome  *string
}

// auditRepo — реализация AuditRepository.
type auditRepo struct {
	db DBTX
}

// NewAuditRepository создаёт репозиторий аудита отправок.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Insert(ctx context.Context, e *model.AuditEntry) error {
	query := `
		INSERT INTO submission_audit (id, resource, record_id, action, actor, outcome, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.Resource, e.RecordID, e.Action, e.Actor, e.Outcome, e.Message,
	).Scan(&e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: запись аудита с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка вставки записи аудита: %w", err)
	}
	return nil
}

// buildAuditWhere строит WHERE-условие и аргументы для фильтрации аудита.
func buildAuditWhere(filters AuditFilters, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if filters.Resource != nil {
		conditions = append(conditions, fmt.Sprintf("resource = $%d", argNum))
		args = append(args, *filters.Resource)
		argNum++
	}
	if filters.Action != nil {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argNum))
		args = append(args, *filters.Action)
		argNum++
	}
	if filters.Actor != nil {
		conditions = append(conditions, fmt.Sprintf("actor = $%d", argNum))
		args = append(args, *filters.Actor)
		argNum++
	}
	if filters.Outcome != nil {
		conditions = append(conditions, fmt.Sprintf("outcome = $%d", argNum))
		args = append(args, *filters.Outcome)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *auditRepo) List(ctx context.Context, filters AuditFilters, limit, offset int) ([]*model.AuditEntry, error) {
	where, args := buildAuditWhere(filters, 1)

	query := fmt.Sprintf(`
		SELECT id, resource, record_id, action, actor, outcome, message, created_at
		FROM submission_audit%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса списка аудита: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		if err := rows.Scan(
			&e.ID, &e.Resource, &e.RecordID, &e.Action, &e.Actor,
			&e.Outcome, &e.Message, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения записи аудита: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по записям аудита: %w", err)
	}

	return entries, nil
}

func (r *auditRepo) Count(ctx context.Context, filters AuditFilters) (int, error) {
	where, args := buildAuditWhere(filters, 1)

	query := "SELECT COUNT(*) FROM submission_audit" + where

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей аудита: %w", err)
	}
	return count, nil
}
