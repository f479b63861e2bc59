package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/evermart/order-service/internal/entities"
	"github.com/evermart/order-service/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ReleaseExpiredOrders возвращает резерв просроченных неоплаченных заказов
// на склад и удаляет их. Каждый заказ обрабатывается в своей транзакции,
// падение одного не останавливает обход остальных.
func (s *orderService) ReleaseExpiredOrders(ctx context.Context) (int, error) {
	var orders []entities.Order
	fn := func() error {
		var err error
		orders, err = s.repo.ListExpiredUnpaidOrders(ctx, time.Now())
		return err
	}
	cfg := utils.RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxAttempts:  3,
		Multiplier:   2,
	}
	if err := utils.Retry(cfg, fn); err != nil {
		return 0, fmt.Errorf("failed to list expired orders: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}

	var released atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SweepConcurrency)

	for _, order := range orders {
		order := order
		g.Go(func() error {
			err := s.releaseOrder(ctx, order)
			switch {
			case errors.Is(err, entities.ErrOrderNotPending):
				s.logger.InfoContext(ctx, "order no longer awaits payment, skipped",
					slog.String("order_id", order.ID.String()),
				)
			case err != nil:
				s.logger.ErrorContext(ctx, "failed to release expired order",
					slog.String("order_id", order.ID.String()),
					slog.Any("error", err),
				)
			default:
				released.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	count := int(released.Load())
	if count > 0 {
		s.logger.InfoContext(ctx, "expired orders released", slog.Int("count", count))
	}
	return count, nil
}

func (s *orderService) releaseOrder(ctx context.Context, order entities.Order) error {
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		// заказ могли оплатить между выборкой просроченных и этой транзакцией
		current, err := s.repo.GetOrderByID(ctx, order.ID)
		if errors.Is(err, entities.ErrOrderNotFound) {
			return entities.ErrOrderNotPending
		}
		if err != nil {
			return err
		}
		if current.Status != entities.OrderStatusWaitingForPayment {
			return entities.ErrOrderNotPending
		}

		updaters, err := s.stock.RetrieveProductUpdaters(ctx, orderProductIDs(order))
		if err != nil {
			return err
		}

		units := 0
		for _, p := range order.Products {
			updater := updaters[p.ProductID]
			for _, v := range p.Variants {
				for _, size := range v.Sizes {
					if err := updater.AddStockForVariant(v.VariantID, size.SizeValue, size.Quantity); err != nil {
						return err
					}
					units += size.Quantity
				}
			}
		}

		if err := s.stock.ApplyProductUpdaters(ctx, updaters); err != nil {
			return err
		}
		// условное удаление закрывает гонку с оплатой: ноль строк
		// откатывает возврат резерва вместе с транзакцией
		if err := s.repo.DeleteUnpaidOrder(ctx, order.ID); err != nil {
			return err
		}

		stockUnitsReleased.Add(float64(units))
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Remove(order.ID.String())
	expiredOrdersReleased.Inc()
	return nil
}

func orderProductIDs(order entities.Order) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(order.Products))
	for _, p := range order.Products {
		ids = append(ids, p.ProductID)
	}
	return ids
}
