package handlers

import (
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/Kennedyongogo/safari-admin-sub002/internal/api/errors"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/repository"
)

// auditEntryResponse — запись журнала в ответе API.
type auditEntryResponse struct {
	ID        string `json:"id"`
	Resource  string `json:"resource"`
	RecordID  string `json:"record_id,omitempty"`
	Action    string `json:"action"`
	Actor     string `json:"actor"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at"`
}

// auditListResponse — страница журнала отправок.
type auditListResponse struct {
	Entries []auditEntryResponse `json:"entries"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// ListAudit — GET /api/v1/audit.
// Возвращает журнал отправок с фильтрами и пагинацией.
func (h *APIHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationDefaults(r)

	var filters repository.AuditFilters
	q := r.URL.Query()
	if v := q.Get("resource"); v != "" {
		filters.Resource = &v
	}
	if v := q.Get("action"); v != "" {
		filters.Action = &v
	}
	if v := q.Get("actor"); v != "" {
		filters.Actor = &v
	}
	if v := q.Get("outcome"); v != "" {
		filters.Outcome = &v
	}

	entries, total, err := h.audit.List(r.Context(), filters, limit, offset)
	if err != nil {
		h.logger.Error("Ошибка получения журнала отправок", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:        e.ID,
			Resource:  e.Resource,
			RecordID:  e.RecordID,
			Action:    e.Action,
			Actor:     e.Actor,
			Outcome:   e.Outcome,
			Message:   e.Message,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeSuccess(w, http.StatusOK, auditListResponse{
		Entries: out,
		Limit:   limit,
		Offset:  offset,
		Total:   total,
	})
}
