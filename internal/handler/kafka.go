package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/evermart/order-service/internal/config"
	"github.com/evermart/order-service/internal/entities"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// PaymentEvent сообщение от платёжного шлюза об успешной оплате.
type PaymentEvent struct {
	OrderID string    `json:"order_id" validate:"required,uuid"`
	PaidAt  time.Time `json:"paid_at"`
}

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, paidAt time.Time) error
}

type kafkaHandler struct {
	dlq       *kafka.Writer
	reader    *kafka.Reader
	logger    *slog.Logger
	validate  *validator.Validate
	confirmer PaymentConfirmer
}

func NewKafkaHandler(logger *slog.Logger, cfg config.Kafka, confirmer PaymentConfirmer) *kafkaHandler {
	return &kafkaHandler{
		logger: logger.With(slog.String("handler", "kafka")),
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			GroupID: cfg.GroupID,
			Topic:   cfg.PaymentTopic,
			MaxWait: cfg.ReaderMaxWait,
		}),
		dlq: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
		validate:  validator.New(),
		confirmer: confirmer,
	}
}

func (h *kafkaHandler) Consume(ctx context.Context) {
	for {
		m, err := h.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				break
			}
			h.logger.Error("failed to fetch message", slog.Any("error", err))
			continue
		}

		if err := h.handlePaymentEvent(ctx, m); err != nil {
			if isPermanentPaymentError(err) {
				// бизнес-отказ: событие обработано, повтор не нужен
				h.logger.Warn("payment event rejected", slog.Any("error", err))
				paymentEventsRejected.Inc()
			} else {
				h.logger.Error("failed to handle payment event", slog.Any("error", err))
				if err := h.writeToDLQ(ctx, m); err != nil {
					h.logger.Error("failed to write message to DLQ", slog.Any("error", err))
					continue
				}
				paymentEventsDLQ.Inc()
			}
		} else {
			paymentEventsProcessed.Inc()
		}

		if err := h.reader.CommitMessages(ctx, m); err != nil {
			h.logger.Error("failed to commit message", slog.Any("error", err))
		}
	}
}

func (h *kafkaHandler) handlePaymentEvent(ctx context.Context, m kafka.Message) error {
	var event PaymentEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal payment event: %w", err)
	}
	if err := h.validate.Struct(event); err != nil {
		return fmt.Errorf("invalid payment event: %w", err)
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		return fmt.Errorf("invalid order id: %w", err)
	}
	return h.confirmer.ConfirmPayment(ctx, orderID, event.PaidAt)
}

// isPermanentPaymentError отличает бизнес-отказ от транзиентной ошибки:
// повтор первого не изменит исход.
func isPermanentPaymentError(err error) bool {
	var (
		alreadyPaid      *entities.PaymentAlreadyMadeError
		deadlineExceeded *entities.PaymentDeadlineExceededError
	)
	return errors.Is(err, entities.ErrOrderNotFound) ||
		errors.As(err, &alreadyPaid) ||
		errors.As(err, &deadlineExceeded)
}

func (h *kafkaHandler) writeToDLQ(ctx context.Context, m kafka.Message) error {
	m.Topic = fmt.Sprintf("%s-dlq", m.Topic)
	return h.dlq.WriteMessages(ctx, m)
}

func (h *kafkaHandler) Close() error {
	if err := h.reader.Close(); err != nil {
		return err
	}
	return h.dlq.Close()
}
