package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/bill-tracker/backend/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	billHandler *handlers.BillHandler,
	notificationHandler *handlers.NotificationHandler,
	metricsHandler http.Handler,
	authMiddleware echo.MiddlewareFunc,
	authRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", healthHandler.Health)
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	e.Any("/api/bills", billHandler.Legacy, authMiddleware)

	api := e.Group("/api/v1")
	authGroup := api.Group("/auth", authRateLimiter)

	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authHandler.Me, authMiddleware)

	bills := api.Group("/bills", authMiddleware)
	bills.GET("", billHandler.List)
	bills.POST("", billHandler.Create)
	bills.GET("/summary", billHandler.Summary)
	bills.GET("/categories", billHandler.Categories)
	bills.GET("/stats/monthly", billHandler.Monthly)
	bills.GET("/export/json", billHandler.ExportJSON)
	bills.GET("/export/csv", billHandler.ExportCSV)
	bills.PUT("/:id", billHandler.Update)
	bills.PATCH("/:id/toggle", billHandler.Toggle)
	bills.DELETE("/:id", billHandler.Delete)

	notifications := api.Group("/notifications", authMiddleware)
	notifications.GET("/stream", notificationHandler.Stream)
}
