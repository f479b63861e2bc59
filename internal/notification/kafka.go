package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/evermart/order-service/internal/config"
	"github.com/evermart/order-service/internal/entities"

	"github.com/segmentio/kafka-go"
)

// PaymentConfirmationEvent уходит сервису рассылок, письмо отправляет он.
type PaymentConfirmationEvent struct {
	OrderID       string    `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	CustomerName  string    `json:"customer_name"`
	Amount        string    `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

type kafkaNotifier struct {
	logger *slog.Logger
	writer *kafka.Writer
}

func NewKafkaNotifier(logger *slog.Logger, cfg config.Kafka) *kafkaNotifier {
	return &kafkaNotifier{
		logger: logger.With(slog.String("notifier", "kafka")),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.NotificationTopic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
	}
}

func (n *kafkaNotifier) SendPaymentConfirmation(ctx context.Context, order entities.Order) error {
	event := PaymentConfirmationEvent{
		OrderID:       order.ID.String(),
		CustomerEmail: order.Customer.Email,
		CustomerName:  order.Customer.Name,
		Amount:        order.TotalAmount().String(),
	}
	if order.Payment.PaidAt != nil {
		event.PaidAt = *order.Payment.PaidAt
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}

	n.logger.Debug("payment confirmation sent", slog.String("order_id", event.OrderID))
	return nil
}

func (n *kafkaNotifier) Close() error {
	return n.writer.Close()
}
