package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evermart/order-service/internal/entities"

	"github.com/google/uuid"
)

// ConfirmPayment обрабатывает успех платёжного шлюза. Остатки здесь
// не трогаются: резерв списан при создании заказа, меняется только статус.
func (s *orderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, paidAt time.Time) error {
	paymentOrder, err := s.repo.GetPaymentOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if paymentOrder.Paid {
		return &entities.PaymentAlreadyMadeError{OrderID: orderID}
	}
	if time.Now().After(paymentOrder.Deadline) {
		return &entities.PaymentDeadlineExceededError{OrderID: orderID, Deadline: paymentOrder.Deadline}
	}

	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	var order entities.Order
	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		order, err = s.repo.GetOrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.MarkPaid(paidAt); err != nil {
			return err
		}
		if err := s.repo.UpdateOrderPayment(ctx, order); err != nil {
			return fmt.Errorf("failed to persist payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Remove(orderID.String())
	paymentsConfirmed.Inc()

	// Уведомление best effort: падение не отменяет подтверждённую оплату.
	if err := s.notifier.SendPaymentConfirmation(ctx, order); err != nil {
		s.logger.WarnContext(ctx, "failed to send payment confirmation",
			slog.String("order_id", orderID.String()),
			slog.Any("error", err),
		)
	}

	s.logger.InfoContext(ctx, "payment confirmed", slog.String("order_id", orderID.String()))
	return nil
}
