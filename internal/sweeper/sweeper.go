package sweeper

import (
	"context"
	"log/slog"
	"time"
)

type OrderReleaser interface {
	ReleaseExpiredOrders(ctx context.Context) (int, error)
}

// Sweeper периодически вызывает release просроченных заказов.
type Sweeper struct {
	logger   *slog.Logger
	svc      OrderReleaser
	interval time.Duration
}

func New(logger *slog.Logger, svc OrderReleaser, interval time.Duration) *Sweeper {
	return &Sweeper{
		logger:   logger.With(slog.String("worker", "sweeper")),
		svc:      svc,
		interval: interval,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.svc.ReleaseExpiredOrders(ctx); err != nil {
					s.logger.Error("sweep failed", slog.Any("error", err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
