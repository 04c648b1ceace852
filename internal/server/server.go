package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/bill-tracker/backend/internal/auth"
	"example.com/bill-tracker/backend/internal/bills"
	"example.com/bill-tracker/backend/internal/config"
	"example.com/bill-tracker/backend/internal/handlers"
	"example.com/bill-tracker/backend/internal/metrics"
	"example.com/bill-tracker/backend/internal/notifications"
	"example.com/bill-tracker/backend/internal/repository"
)

// Deps содержит собранные зависимости процесса.
type Deps struct {
	Store   repository.Store
	Bills   *bills.Service
	Hub     *notifications.Hub
	Metrics *metrics.Metrics
}

// NewBillService собирает сервис счетов по конфигурации.
func NewBillService(cfg config.Config, logger *slog.Logger, store repository.Store, hub *notifications.Hub, m *metrics.Metrics) *bills.Service {
	opts := bills.Options{
		Location:     cfg.Recurrence.Location,
		ExpandOnList: cfg.Recurrence.OnList,
		Notifier:     hub,
		Logger:       logger,
	}
	if m != nil {
		opts.Metrics = m
	}
	return bills.NewService(store.Bills, opts)
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, deps Deps) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	var metricsHandler http.Handler
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
		metricsHandler = deps.Metrics.Handler()
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	authMiddleware := auth.JWTMiddleware(tokenManager, auth.MiddlewareConfig{
		SkipAuth:     cfg.Auth.SkipAuth,
		DevUserEmail: cfg.Auth.DevUserEmail,
	})

	healthHandler := handlers.NewHealthHandler(cfg.Storage.Backend, deps.Store.Ping)
	authHandler := handlers.NewAuthHandler(deps.Store.Users, tokenManager)
	billHandler := handlers.NewBillHandler(deps.Bills)
	notificationHandler := handlers.NewNotificationHandler(deps.Hub)

	registerRoutes(
		e,
		healthHandler,
		authHandler,
		billHandler,
		notificationHandler,
		metricsHandler,
		authMiddleware,
		authRateLimiter(cfg.Auth),
	)

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	limit := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     cfg.RateLimitBurst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
