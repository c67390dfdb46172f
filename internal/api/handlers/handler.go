// handler.go — основной обработчик API Safari Admin.
// Объединяет доменные обработчики, регистрирует маршруты chi
// и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/service"
)

// APIHandler — основной обработчик API Safari Admin.
type APIHandler struct {
	health *HealthHandler
	editor *service.EditorService
	audit  *service.AuditService
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// audit может быть nil, если просмотр журнала отключён.
func NewAPIHandler(
	health *HealthHandler,
	editor *service.EditorService,
	audit *service.AuditService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health: health,
		editor: editor,
		audit:  audit,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// RegisterRoutes регистрирует маршруты API на роутере.
// authMiddleware может быть nil (аутентификация выключена).
func (h *APIHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	// Health endpoints — без аутентификации
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(api chi.Router) {
		if authMiddleware != nil {
			api.Use(authMiddleware)
		}

		// Открытие сессий редактора
		api.Post("/editor/{resource}", h.OpenCreate)
		api.Post("/editor/{resource}/{id}", h.OpenEdit)

		// Операции над сессией
		api.Route("/editor/sessions/{sessionID}", func(s chi.Router) {
			s.Get("/", h.GetSession)
			s.Delete("/", h.DiscardSession)
			s.Patch("/fields", h.SetFields)
			s.Post("/media/{slot}", h.StageMedia)
			s.Post("/media/{slot}/reset", h.ResetMedia)
			s.Post("/media/{slot}/clear", h.ClearMedia)
			s.Post("/submit", h.Submit)
		})

		// Удаление записи коллекции (со списочного экрана, без сессии)
		api.Delete("/{resource}/{id}", h.DeleteRecord)

		// Журнал отправок
		api.Get("/audit", h.ListAudit)
	})
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// successBody — конверт успешного ответа, совпадающий с форматом content API.
type successBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// writeSuccess записывает успешный ответ в стандартном конверте.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successBody{Success: true, Data: data})
}

// paginationDefaults нормализует query-параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(r *http.Request) (int, int) {
	l := 100
	o := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			l = n
		}
	}
	if l < 1 {
		l = 1
	}
	if l > 1000 {
		l = 1000
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o = n
		}
	}
	if o < 0 {
		o = 0
	}

	return l, o
}
