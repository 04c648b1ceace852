package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

type HealthHandler struct {
	Backend string
	Ping    func(ctx context.Context) error
}

// NewHealthHandler создает обработчик проверки состояния.
func NewHealthHandler(backend string, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{Backend: backend, Ping: ping}
}

// Health возвращает статус сервиса и доступность хранилища.
func (h *HealthHandler) Health(c echo.Context) error {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := h.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Storage: h.Backend})
		}
	}

	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Storage: h.Backend})
}
