package api

import (
	"net/http"
	"time"

	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	_ "github.com/athebyme/funpay-bridge/services/lot-service/docs"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/api/handlers"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/api/middleware"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterOptions параметры HTTP слоя
type RouterOptions struct {
	CORSAllowOrigins []string
	// RequestTimeout применяется ко всем маршрутам, кроме копирования
	RequestTimeout time.Duration
	RateLimit      int
	RateWindow     time.Duration
	MetricsEnabled bool
}

// SetupRouter настраивает маршрутизатор
func SetupRouter(
	lotService services.LotServiceInterface,
	logger interfaces.LoggerPort,
	opts RouterOptions,
) *chi.Mux {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}

	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(opts.CORSAllowOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimiter(opts.RateLimit, opts.RateWindow))
	if opts.MetricsEnabled {
		r.Use(middleware.Metrics)
	}

	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	lotHandler := handlers.NewLotHandler(lotService, logger)
	copyHandler := handlers.NewCopyHandler(lotService, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))

		r.Post("/auth", lotHandler.Authenticate)

		// /lots/offerEdit объявлен до /lots/{subcategoryId}; chi отдает приоритет статическому сегменту
		r.Get("/lots/offerEdit", lotHandler.OfferFields)
		r.Get("/lots/{subcategoryId}", lotHandler.ListLots)
		r.Get("/lots-by-user/{subcategoryId}/{userId}", lotHandler.ListUserLots)

		r.Post("/create-lot", lotHandler.CreateLot)
		r.Post("/create-lot-from-fields", lotHandler.SaveFields)

		r.Get("/get_user_subcategories/{userId}", lotHandler.UserSubcategories)

		r.Get("/copy-jobs/{jobId}", copyHandler.GetCopyJob)
		r.Get("/copy-stats/{userId}", copyHandler.GetCopyStats)
	})

	// Копирование выполняется в пуле воркеров и не ограничено таймаутом запроса
	r.Post("/copy-lots", copyHandler.CopyLots)
	r.Post("/copy-lots/async", copyHandler.StartCopyJob)

	return r
}
