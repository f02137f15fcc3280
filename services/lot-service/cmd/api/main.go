package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/config"
	"github.com/athebyme/funpay-bridge/services/lot-service/docs"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/cache"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/logger"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/messaging"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/api"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/services"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/funpay"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Инициализация сервиса",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	cacheClient, err := newCache(ctx, cfg)
	if err != nil {
		log.Fatal("Ошибка инициализации кэша", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Кэш инициализирован", interfaces.LogField{Key: "redis", Value: cfg.Redis.Enabled})

	testCtx, testCancel := context.WithTimeout(ctx, 5*time.Second)
	defer testCancel()

	if err := checkCacheConnection(testCtx, cacheClient); err != nil {
		log.Fatal("Ошибка подключения к кэшу",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Соединение с кэшем проверено")

	var (
		events          services.EventPublisher = messaging.NopPublisher{}
		messagingClient *messaging.KafkaMessaging
	)
	if cfg.Kafka.Enabled {
		messagingClient, err = messaging.NewKafkaMessaging(
			cfg.Kafka.Brokers,
			cfg.Kafka.ClientID,
			cfg.Kafka.GroupID,
			log,
		)
		if err != nil {
			log.Fatal("Ошибка инициализации системы обмена сообщениями", interfaces.LogField{Key: "error", Value: err.Error()})
		}

		if err := messagingClient.EnsureTopic(testCtx, cfg.Kafka.EventsTopic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			log.Warn("Не удалось создать топик событий копирования",
				interfaces.LogField{Key: "topic", Value: cfg.Kafka.EventsTopic},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}

		events = messaging.NewCopyEventPublisher(messagingClient, cfg.Kafka.EventsTopic)
		log.Info("Система обмена сообщениями инициализирована")
	}

	gateway, err := funpay.NewGateway(funpay.Options{
		BaseURL:          cfg.FunPay.BaseURL,
		UserAgent:        cfg.FunPay.UserAgent,
		Locale:           cfg.FunPay.Locale,
		Timeout:          cfg.FunPay.RequestTimeout,
		CloudflareBypass: cfg.FunPay.CloudflareBypass,
	}, log)
	if err != nil {
		log.Fatal("Ошибка инициализации клиента маркетплейса", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	open := func(ctx context.Context, goldenKey, userAgent string) (services.MarketSession, error) {
		session, err := gateway.Authenticate(ctx, goldenKey, userAgent)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	extractor := services.NewFieldExtractor()
	copier := services.NewCopier(
		extractor,
		services.NewComposer(cfg.Fields),
		services.NewImageRelay(cfg.Copy.ImageTimeout, cfg.Copy.ImageMaxBytes, log),
		events,
		services.CopyOptions{
			Locale:               cfg.FunPay.Locale,
			RetryOnSessionExpiry: cfg.Copy.RetryOnExpiry,
			MaxSessionRefreshes:  cfg.Copy.MaxSessionRefreshes,
			DefaultCurrency:      cfg.Copy.DefaultCurrency,
		},
		log,
	)

	runner := services.NewJobRunner(cfg.Copy.Workers, cfg.Copy.QueueSize, log)
	lotService := services.NewLotService(
		open,
		copier,
		extractor,
		cfg.Fields,
		runner,
		services.NewJobStore(cacheClient, cfg.Copy.JobTTL),
		cacheClient,
		services.LotServiceOptions{
			Locale:           cfg.FunPay.Locale,
			LockTTL:          cfg.Copy.LockTTL,
			OperationTimeout: cfg.Copy.OperationTimeout,
		},
		log,
	)
	log.Info("Сервис лотов инициализирован")

	docs.SwaggerInfo.Version = cfg.Version

	router := api.SetupRouter(lotService, log, api.RouterOptions{
		CORSAllowOrigins: cfg.Security.CORSAllowOrigins,
		RequestTimeout:   cfg.Security.RequestTimeout,
		RateLimit:        cfg.Security.RateLimit,
		RateWindow:       cfg.Security.RateWindow,
		MetricsEnabled:   cfg.Metrics.Enabled,
	})
	log.Info("Маршрутизатор настроен")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Ошибка запуска сервера", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("Ошибка при graceful shutdown", interfaces.LogField{Key: "error", Value: err.Error()})
		}
		log.Info("HTTP сервер остановлен")

		// уже начатые копирования доводятся до конца в пределах таймаута
		if err := runner.Shutdown(ctx); err != nil {
			log.Error("Не все задачи копирования завершились",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}

		log.Info("Закрытие соединений с зависимостями...")

		if messagingClient != nil {
			if err := messagingClient.Close(); err != nil {
				log.Error("Ошибка при закрытии Kafka",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}

		if err := cacheClient.Close(); err != nil {
			log.Error("Ошибка при закрытии кэша",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}

		close(done)
	}()

	<-done
	log.Info("Сервер корректно завершил работу")
}

func newCache(ctx context.Context, cfg *config.Config) (interfaces.CachePort, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cfg.Redis.CleanupInterval), nil
	}
	return cache.NewRedisCache(
		ctx,
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.Prefix,
	)
}

// Проверка соединения с кэшем
func checkCacheConnection(ctx context.Context, cacheClient interfaces.CachePort) error {
	testKey := "test:connection"
	testValue := []byte("test-value")

	if err := cacheClient.Set(ctx, testKey, testValue, 10*time.Second); err != nil {
		return fmt.Errorf("ошибка записи в кэш: %w", err)
	}

	value, err := cacheClient.Get(ctx, testKey)
	if err != nil {
		return fmt.Errorf("ошибка чтения из кэша: %w", err)
	}

	if string(value) != string(testValue) {
		return fmt.Errorf("некорректное значение из кэша: получено %s, ожидалось %s",
			string(value), string(testValue))
	}

	if err := cacheClient.Delete(ctx, testKey); err != nil {
		return fmt.Errorf("ошибка удаления из кэша: %w", err)
	}

	return nil
}
