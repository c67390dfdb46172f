// Пакет config — загрузка и валидация конфигурации Safari Admin
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Safari Admin.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8000-8009)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL (аудит отправок) ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Content API ---

	// Базовый URL content API (например, https://api.safari.lan)
	CMSAPIURL string
	// Путь к CA-сертификату для TLS-соединений с content API (опционально)
	CMSCACertPath string

	// --- JWT ---

	// URL JWKS endpoint (опционально; пустой — аутентификация выключена)
	JWTJWKSURL string
	// Issuer JWT (опционально; пустой — issuer не проверяется)
	JWTIssuer string

	// --- Сессии редактора ---

	// Время жизни неактивной сессии редактора
	SessionTTL time.Duration
	// Интервал уборки истёкших сессий
	SessionReapInterval time.Duration

	// --- Dephealth ---

	// Группа сервиса в topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SA_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("SA_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("SA_PORT: %w", err)
	}
	if cfg.Port < 8000 || cfg.Port > 8009 {
		return nil, fmt.Errorf("SA_PORT: значение %d вне допустимого диапазона 8000-8009", cfg.Port)
	}

	// SA_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SA_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SA_LOG_LEVEL: %w", err)
	}

	// SA_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SA_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SA_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// SA_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("SA_DB_HOST")
	if err != nil {
		return nil, err
	}

	// SA_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("SA_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SA_DB_PORT: %w", err)
	}

	// SA_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("SA_DB_NAME")
	if err != nil {
		return nil, err
	}

	// SA_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("SA_DB_USER")
	if err != nil {
		return nil, err
	}

	// SA_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("SA_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// SA_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("SA_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SA_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Content API ---

	// SA_CMS_API_URL — обязательный
	cfg.CMSAPIURL, err = getEnvRequired("SA_CMS_API_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.CMSAPIURL = strings.TrimRight(cfg.CMSAPIURL, "/")

	// SA_CMS_CA_CERT_PATH — путь к CA-сертификату content API (опционально)
	cfg.CMSCACertPath = getEnvDefault("SA_CMS_CA_CERT_PATH", "")

	// --- JWT ---

	// SA_JWT_JWKS_URL — JWKS endpoint (опционально; пустой — аутентификация выключена)
	cfg.JWTJWKSURL = getEnvDefault("SA_JWT_JWKS_URL", "")

	// SA_JWT_ISSUER — issuer токенов (опционально)
	cfg.JWTIssuer = getEnvDefault("SA_JWT_ISSUER", "")

	// --- Сессии редактора ---

	// SA_SESSION_TTL — время жизни неактивной сессии (по умолчанию 30m)
	cfg.SessionTTL, err = getEnvDuration("SA_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SA_SESSION_TTL: %w", err)
	}

	// SA_SESSION_REAP_INTERVAL — интервал уборки сессий (по умолчанию 1m)
	cfg.SessionReapInterval, err = getEnvDuration("SA_SESSION_REAP_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SA_SESSION_REAP_INTERVAL: %w", err)
	}

	// --- Dephealth ---

	// SA_DEPHEALTH_GROUP — группа сервиса (по умолчанию safari)
	cfg.DephealthGroup = getEnvDefault("SA_DEPHEALTH_GROUP", "safari")

	// SA_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("SA_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SA_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// SA_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SA_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SA_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// AuthEnabled сообщает, включена ли проверка JWT.
func (c *Config) AuthEnabled() bool {
	return c.JWTJWKSURL != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
