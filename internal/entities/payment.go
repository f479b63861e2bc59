package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentInfo struct {
	Status   PaymentStatus
	PaidAt   *time.Time
	Deadline time.Time
}

// NewPaymentInfo следит за инвариантом: PaidAt заполнен тогда и только
// тогда, когда статус PAID.
func NewPaymentInfo(status PaymentStatus, paidAt *time.Time, deadline time.Time) (PaymentInfo, error) {
	if !status.IsValid() {
		return PaymentInfo{}, &InvalidPaymentStatusError{PaymentStatus: status}
	}
	if (status == PaymentStatusPaid) != (paidAt != nil) {
		return PaymentInfo{}, &InvalidPaymentStatusError{PaymentStatus: status}
	}
	return PaymentInfo{Status: status, PaidAt: paidAt, Deadline: deadline}, nil
}

func (p PaymentInfo) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}

func (p PaymentInfo) IsExpired(now time.Time) bool {
	return now.After(p.Deadline)
}

// PaymentOrder это проекция для подтверждения оплаты: ровно то, что нужно
// обработчику успеха платёжного шлюза.
type PaymentOrder struct {
	OrderID  uuid.UUID
	Amount   decimal.Decimal
	Paid     bool
	Deadline time.Time
}
