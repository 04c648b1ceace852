package recurrence

import (
	"context"
	"log/slog"
	"time"
)

// Runner выполняет один проход генерации по всем владельцам.
type Runner interface {
	ExpandAll(ctx context.Context) (int, error)
}

// Scheduler периодически запускает Runner. Повторные проходы безопасны:
// генерация идемпотентна в пределах периода серии.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler создает планировщик с заданным интервалом.
func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Run выполняет проход сразу и затем по таймеру до отмены контекста.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	s.logger.Info("recurrence scheduler started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("recurrence scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	generated, err := s.runner.ExpandAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("recurrence pass failed", slog.String("error", err.Error()))
		return
	}

	if generated > 0 {
		s.logger.Info("recurrence pass completed", slog.Int("generated", generated))
	}
}
