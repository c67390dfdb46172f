// metrics.go — Prometheus HTTP метрики для Safari Admin.
// Регистрирует метрики: sa_http_requests_total, sa_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sa_http_requests_total",
			Help: "Общее количество HTTP-запросов к Safari Admin",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sa_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Safari Admin в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем идентификаторы на плейсхолдеры для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет идентификаторы в пути на плейсхолдеры для
// предотвращения взрывного роста кардинальности метрик.
// /api/v1/editor/sessions/a1b2.../fields → /api/v1/editor/sessions/{sessionID}/fields
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics", "/api/v1/audit":
		return path
	}

	const sessionsPrefix = "/api/v1/editor/sessions/"
	if strings.HasPrefix(path, sessionsPrefix) {
		rest := path[len(sessionsPrefix):]
		// UUID сессии — 36 символов
		suffix := ""
		if len(rest) > 36 {
			suffix = rest[36:]
		}
		switch {
		case suffix == "" || suffix == "/":
			return sessionsPrefix + "{sessionID}"
		case suffix == "/fields":
			return sessionsPrefix + "{sessionID}/fields"
		case suffix == "/submit":
			return sessionsPrefix + "{sessionID}/submit"
		case strings.HasSuffix(suffix, "/reset"):
			return sessionsPrefix + "{sessionID}/media/{slot}/reset"
		case strings.HasSuffix(suffix, "/clear"):
			return sessionsPrefix + "{sessionID}/media/{slot}/clear"
		case strings.HasPrefix(suffix, "/media/"):
			return sessionsPrefix + "{sessionID}/media/{slot}"
		default:
			return sessionsPrefix + "{sessionID}"
		}
	}

	const editorPrefix = "/api/v1/editor/"
	if strings.HasPrefix(path, editorPrefix) {
		rest := path[len(editorPrefix):]
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			return editorPrefix + rest[:idx] + "/{id}"
		}
		return path
	}

	// DELETE /api/v1/{resource}/{id}
	const apiPrefix = "/api/v1/"
	if strings.HasPrefix(path, apiPrefix) {
		rest := path[len(apiPrefix):]
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			return apiPrefix + rest[:idx] + "/{id}"
		}
	}

	return path
}
