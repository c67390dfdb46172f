// Пакет cmsclient — HTTP-клиент к REST API контент-платформы (Remote Sync).
// Поддерживает TLS с кастомным CA (SA_CMS_CA_CERT_PATH).
// Операции: Get (GET /{collection}/{id}), Create (POST multipart),
// Update (PUT multipart), Delete. Ответы — JSON-конверт
// {success, data?, message?}; повторов нет — каждая ошибка терминальна
// для данной попытки.
package cmsclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/encode"
)

// genericFailure — сообщение по умолчанию, когда сервер не прислал своё.
const genericFailure = "запрос к content API завершился ошибкой"

// Envelope — стандартный конверт ответов content API.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// UpstreamError — неуспешный ответ content API (транспортная ошибка либо
// конверт с success=false). Message — сообщение сервера или generic fallback.
type UpstreamError struct {
	// StatusCode — HTTP-статус ответа (0 — транспортная ошибка).
	StatusCode int
	// Message — сообщение для пользователя.
	Message string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("content API вернул статус %d: %s", e.StatusCode, e.Message)
}

// Client — HTTP-клиент к content API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент content API.
// baseURL — базовый URL платформы (без trailing slash).
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func New(baseURL, caCertPath string, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата content API: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат content API добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "cms_client")),
	}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// Get запрашивает запись коллекции (bootstrap edit-потока).
// apiPath — путь коллекции (например, "/api/blogs").
// token — bearer-токен пользователя дашборда, передаётся явно.
func (c *Client) Get(ctx context.Context, apiPath, id, token string) (map[string]any, error) {
	reqURL := fmt.Sprintf("%s%s/%s", c.baseURL, apiPath, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса Get: %w", err)
	}
	setAuth(req, token)

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return decodeRecord(env.Data)
}

// Create отправляет multipart-запрос создания записи.
func (c *Client) Create(ctx context.Context, apiPath string, payload *encode.Payload, token string) (map[string]any, error) {
	reqURL := c.baseURL + apiPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, payload.Body())
	if err != nil {
		return nil, fmt.Errorf("создание запроса Create: %w", err)
	}
	req.Header.Set("Content-Type", payload.ContentType())
	setAuth(req, token)

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return decodeRecord(env.Data)
}

// Update отправляет multipart-запрос обновления записи.
// Опущенные опциональные поля сервер трактует как «не изменять».
func (c *Client) Update(ctx context.Context, apiPath, id string, payload *encode.Payload, token string) (map[string]any, error) {
	reqURL := fmt.Sprintf("%s%s/%s", c.baseURL, apiPath, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, payload.Body())
	if err != nil {
		return nil, fmt.Errorf("создание запроса Update: %w", err)
	}
	req.Header.Set("Content-Type", payload.ContentType())
	setAuth(req, token)

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return decodeRecord(env.Data)
}

// Delete удаляет запись коллекции.
func (c *Client) Delete(ctx context.Context, apiPath, id, token string) error {
	reqURL := fmt.Sprintf("%s%s/%s", c.baseURL, apiPath, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("создание запроса Delete: %w", err)
	}
	setAuth(req, token)

	_, err = c.do(req)
	return err
}

// do выполняет запрос и разбирает конверт ответа.
// Любая неуспешность — транспортная ошибка, не-2xx статус или
// success=false — возвращается как *UpstreamError.
func (c *Client) do(req *http.Request) (*Envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Транспортная ошибка content API",
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return nil, &UpstreamError{Message: genericFailure}
	}
	defer resp.Body.Close()

	var env Envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = genericFailure
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: genericFailure}
	}

	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = genericFailure
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &env, nil
}

// decodeRecord разбирает data конверта в запись.
// Отсутствующее или нескалярное data — пустая запись (Delete, ответы без тела).
func decodeRecord(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, &UpstreamError{Message: genericFailure}
	}
	return record, nil
}

// setAuth выставляет bearer-заголовок, если токен задан.
func setAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// ReadinessChecker — проверка доступности content API для health endpoint.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	baseURL string
	client  *http.Client
}

// NewReadinessChecker создаёт checker доступности content API.
func (c *Client) NewReadinessChecker() *ReadinessChecker {
	return &ReadinessChecker{
		baseURL: c.baseURL,
		client: &http.Client{
			Timeout:   3 * time.Second,
			Transport: c.httpClient.Transport,
		},
	}
}

// CheckReady проверяет, что content API отвечает на HTTP-запросы.
// Любой HTTP-ответ считается признаком жизни; важна достижимость, не статус.
func (r *ReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, r.baseURL+"/", http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("content API недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "degraded", fmt.Sprintf("content API вернул статус %d", resp.StatusCode)
	}
	return "ok", "content API отвечает"
}

// ResolveMediaURL преобразует сохранённый путь медиа в URL для отображения.
// Абсолютные URL проходят без изменений; пути от корня сайта — как есть;
// остальные относительные пути получают ведущий разделитель.
// Обратные слэши (артефакт некоторых storage-слоёв) нормализуются.
func ResolveMediaURL(path string) string {
	if path == "" {
		return ""
	}
	path = strings.ReplaceAll(path, `\`, "/")

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
