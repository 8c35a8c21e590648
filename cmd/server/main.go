package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/agromarket-backend/internal/config"
	"github.com/ignatzorin/agromarket-backend/internal/db"
	"github.com/ignatzorin/agromarket-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/agromarket-backend/internal/http/handlers"
	"github.com/ignatzorin/agromarket-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/agromarket-backend/internal/http/router"
	"github.com/ignatzorin/agromarket-backend/internal/logger"
	"github.com/ignatzorin/agromarket-backend/internal/mail"
	"github.com/ignatzorin/agromarket-backend/internal/metrics"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
	"github.com/ignatzorin/agromarket-backend/internal/service"
	"github.com/ignatzorin/agromarket-backend/internal/storage"
)

const (
	statusCacheTTL     = 5 * time.Second
	statusCacheCleanup = time.Minute
	mailTimeout        = 10 * time.Second
	accessTokenTTL     = 15 * time.Minute
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}
	logger.Init(cfg.Env)

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инфраструктура.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, accessTokenTTL)

	var redisClient redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("main: некорректный REDIS_URL: %v", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		redisClient = client
	}
	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		logger.Log.Fatalf("main: не удалось создать хранилище лимитов: %v", err)
	}

	// Без S3 в сервис уходит nil-интерфейс, и загрузки отвечают 501.
	var objectStore service.ObjectStore
	var storagePing httpHandlers.Pinger
	if cfg.S3.Enabled() {
		objStorage, err := storage.NewObjectStorage(storage.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		}, cfg.StorageCheckTimeout)
		if err != nil {
			logger.Log.Fatalf("main: не удалось подготовить объектное хранилище: %v", err)
		}
		if err := objStorage.EnsureBucket(ctx); err != nil {
			logger.Log.WithError(err).Warn("main: бакет недоступен, проверки файлов будут падать")
		}
		objectStore = objStorage
		storagePing = objStorage
	} else {
		logger.Log.Info("main: S3 не настроен, загрузка доказательств выключена")
	}

	mailer, err := mail.NewMailer(cfg.SMTPURL, mailTimeout)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	var appMetrics *metrics.Metrics
	if cfg.MetricsEnabled {
		appMetrics, err = metrics.New()
		if err != nil {
			logger.Log.Fatalf("main: метрики: %v", err)
		}
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	productRepo := repository.NewProductRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	historyRepo := repository.NewOrderHistoryRepository(dbConn)
	verificationRepo := repository.NewVerificationRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	moderationRepo := repository.NewModerationRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	favoriteRepo := repository.NewFavoriteRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	auditRepo := repository.NewAuditRepository(dbConn)
	earningsRepo := repository.NewEarningsRepository(dbConn)

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, auditRepo)
	locationService := service.NewLocationService(userRepo, productRepo, cfg.GeoCellResolution, appMetrics)
	productService := service.NewProductService(productRepo, verificationRepo, cfg.GeoCellResolution)
	orderService := service.NewOrderService(orderRepo, productRepo, historyRepo, notificationService)
	verificationService := service.NewVerificationService(verificationRepo, objectStore, userRepo, notificationService, mailer, appMetrics, service.VerificationConfig{
		KeyPrefix:       cfg.S3.VerificationPrefix,
		TokenTTL:        cfg.UploadTokenTTL,
		AppealRetention: cfg.AppealRetention,
		MaxUploadBytes:  cfg.MaxUploadSizeMB << 20,
	})
	moderationService := service.NewModerationService(reportRepo, moderationRepo, userRepo, notificationService, appMetrics, cfg.StrikeThreshold)
	reviewService := service.NewReviewService(reviewRepo, orderRepo)
	favoriteService := service.NewFavoriteService(favoriteRepo, productRepo)
	webhookService := service.NewWebhookService(userRepo, cfg.WebhookSecret)
	profileService := service.NewProfileService(userRepo)
	earningsService := service.NewEarningsService(earningsRepo)

	statusCache := service.NewStatusCache(userRepo, statusCacheTTL)
	goroutine.SafeGo(func() { statusCache.RunCleanup(ctx, statusCacheCleanup) })

	// HTTP хэндлеры.
	h := httpRouter.Handlers{
		Health: httpHandlers.NewHealthHandler(map[string]httpHandlers.Pinger{
			"database": dbConn,
			"storage":  storagePing,
		}),
		Profile:      httpHandlers.NewProfileHandler(profileService),
		Location:     httpHandlers.NewLocationHandler(locationService),
		Product:      httpHandlers.NewProductHandler(productService),
		Order:        httpHandlers.NewOrderHandler(orderService),
		Verification: httpHandlers.NewVerificationHandler(verificationService),
		Moderation:   httpHandlers.NewModerationHandler(moderationService, statusCache),
		Review:       httpHandlers.NewReviewHandler(reviewService),
		Favorite:     httpHandlers.NewFavoriteHandler(favoriteService),
		Earnings:     httpHandlers.NewEarningsHandler(earningsService),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		Webhook:      httpHandlers.NewWebhookHandler(webhookService),
	}
	if appMetrics != nil {
		h.MetricsHandle = appMetrics.Handler()
	}

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Deps{
		Tokens:       tokenManager,
		Status:       statusCache,
		LimiterStore: limiterStore,
	}, h)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.Log.Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithError(err).Error("main: ошибка закрытия базы")
	}
}
