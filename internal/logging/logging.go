// Package logging собирает slog-логгер процесса: JSON в окружениях развертывания
// и цветной вывод tint при локальной разработке.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New создает логгер. Локально используется tint, иначе JSON.
func New(w io.Writer, local bool, level string) *slog.Logger {
	lvl := ParseLevel(level)

	if local {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		}))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// ParseLevel переводит debug, warn и error в уровень slog. Остальное дает INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
