// editor.go — обработчики сессий редактора.
// Открытие create/edit-потоков, изменение полей, подготовка медиа
// и отправка формы в content API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Kennedyongogo/safari-admin-sub002/internal/api/errors"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/api/middleware"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/service"
)

// maxUploadMemory — порог буферизации multipart-запроса в памяти.
const maxUploadMemory = 32 << 20

// OpenCreate — POST /api/v1/editor/{resource}.
// Открывает сессию создания новой записи.
func (h *APIHandler) OpenCreate(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")

	snap, err := h.editor.OpenCreate(resource)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, snap)
}

// OpenEdit — POST /api/v1/editor/{resource}/{id}.
// Запрашивает запись у content API и открывает сессию редактирования.
func (h *APIHandler) OpenEdit(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	id := chi.URLParam(r, "id")
	token := middleware.TokenFromContext(r.Context())

	snap, err := h.editor.OpenEdit(r.Context(), resource, id, token)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, snap)
}

// GetSession — GET /api/v1/editor/sessions/{sessionID}.
// Возвращает текущее состояние сессии (включая появившиеся превью).
func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.editor.GetSnapshot(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, snap)
}

// DiscardSession — DELETE /api/v1/editor/sessions/{sessionID}.
// Отбрасывает сессию вместе с подготовленными файлами.
func (h *APIHandler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Discard(chi.URLParam(r, "sessionID")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setFieldsRequest — тело запроса изменения полей.
type setFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// SetFields — PATCH /api/v1/editor/sessions/{sessionID}/fields.
// Применяет изменения полей формы.
func (h *APIHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	var req setFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: ожидается JSON с полем fields")
		return
	}
	if len(req.Fields) == 0 {
		apierrors.ValidationError(w, "Поле fields не может быть пустым")
		return
	}

	snap, err := h.editor.SetFields(chi.URLParam(r, "sessionID"), req.Fields)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, snap)
}

// StageMedia — POST /api/v1/editor/sessions/{sessionID}/media/{slot}.
// Принимает файл multipart-полем "file" и подготавливает его в слот.
func (h *APIHandler) StageMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		apierrors.ValidationError(w, "Некорректный multipart-запрос")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Отсутствует файл в поле file")
		return
	}
	defer file.Close()

	snap, err := h.editor.StageMedia(
		chi.URLParam(r, "sessionID"),
		chi.URLParam(r, "slot"),
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, snap)
}

// ResetMedia — POST /api/v1/editor/sessions/{sessionID}/media/{slot}/reset.
// Сбрасывает слот к исходному состоянию: подготовленный файл отбрасывается,
// сохранённое медиа остаётся.
func (h *APIHandler) ResetMedia(w http.ResponseWriter, r *http.Request) {
	snap, err := h.editor.ResetMedia(chi.URLParam(r, "sessionID"), chi.URLParam(r, "slot"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, snap)
}

// ClearMedia — POST /api/v1/editor/sessions/{sessionID}/media/{slot}/clear.
// Помечает сохранённое медиа к удалению при отправке.
func (h *APIHandler) ClearMedia(w http.ResponseWriter, r *http.Request) {
	snap, err := h.editor.ClearMedia(chi.URLParam(r, "sessionID"), chi.URLParam(r, "slot"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, snap)
}

// Submit — POST /api/v1/editor/sessions/{sessionID}/submit.
// Кодирует форму в multipart и отправляет в content API.
func (h *APIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.editor.Submit(ctx,
		chi.URLParam(r, "sessionID"),
		middleware.TokenFromContext(ctx),
		middleware.ActorFromContext(ctx),
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// DeleteRecord — DELETE /api/v1/{resource}/{id}.
// Удаляет запись коллекции на платформе (без сессии).
func (h *APIHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.editor.DeleteRecord(ctx,
		chi.URLParam(r, "resource"),
		chi.URLParam(r, "id"),
		middleware.TokenFromContext(ctx),
		middleware.ActorFromContext(ctx),
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrUnknownResource):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotReady):
		apierrors.UnprocessableEntity(w, err.Error())
	case errors.Is(err, service.ErrSubmitInFlight):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrUpstream):
		apierrors.UpstreamUnavailable(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка обработчика", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
