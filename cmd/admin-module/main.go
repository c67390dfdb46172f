// Точка входа Admin Module — бэкенд админ-панели платформы Safari.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт клиент content API и сервис сессий редактора, запускает фоновые
// задачи (уборка сессий, topologymetrics), HTTP-сервер с JWT middleware
// и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Kennedyongogo/safari-admin-sub002/internal/api/handlers"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/api/middleware"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/cmsclient"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/config"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/database"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/repository"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/server"
	"github.com/Kennedyongogo/safari-admin-sub002/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Admin Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("SA_DEPHEALTH_GROUP") == "" {
		logger.Warn("SA_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент content API
	cmsClient, err := cmsclient.New(cfg.CMSAPIURL, cfg.CMSCACertPath, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента content API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент content API создан", slog.String("url", cfg.CMSAPIURL))

	// 6. Repositories и сервисный слой
	auditRepo := repository.NewAuditRepository(pool)
	auditSvc := service.NewAuditService(auditRepo, logger)

	editorSvc := service.NewEditorService(
		cmsClient, auditSvc,
		cfg.SessionTTL, cfg.SessionReapInterval,
		logger,
	)
	editorSvc.Start(ctx)

	// 7. Readiness checkers (PostgreSQL + content API)
	pgChecker := database.NewReadinessChecker(pool)
	cmsChecker := cmsClient.NewReadinessChecker()
	healthHandler := handlers.NewHealthHandler(pgChecker, cmsChecker)

	// 8. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, editorSvc, auditSvc, logger)

	// 9. JWT middleware (опционально: пустой SA_JWT_JWKS_URL отключает auth)
	var jwtAuth *middleware.JWTAuth
	if cfg.AuthEnabled() {
		jwtAuth, err = middleware.NewJWTAuth(
			cfg.JWTJWKSURL,
			cfg.CMSCACertPath,
			cfg.JWTIssuer,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer jwtAuth.Close()
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Warn("SA_JWT_JWKS_URL не задан, API работает без аутентификации")
	}

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL + content API)
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"safari-admin",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseDSN(),
		cfg.CMSAPIURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	editorSvc.Stop()

	logger.Info("Admin Module остановлен")
}
