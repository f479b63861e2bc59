package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderCreatorRequired = errors.New("order creator is required")
	ErrInvalidOrderStatus   = errors.New("invalid order status")

	// ErrStockConflict возвращается хранилищем, когда guarded-update не прошёл:
	// кто-то успел изменить остаток между снапшотом и коммитом.
	ErrStockConflict = errors.New("stock was modified concurrently")

	// ErrOrderNotPending возвращается условным удалением, когда заказ успели
	// оплатить или удалить между выборкой просроченных и транзакцией освобождения.
	ErrOrderNotPending = errors.New("order is not awaiting payment")
)

type NotEnoughStockError struct {
	SizeValue string
	Requested int
	Available int
}

func (e *NotEnoughStockError) Error() string {
	return fmt.Sprintf("not enough stock for size %s: requested %d, available %d",
		e.SizeValue, e.Requested, e.Available)
}

type InvalidProductError struct {
	ProductID uuid.UUID
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("product %s does not exist", e.ProductID)
}

type InvalidVariantError struct {
	VariantID uuid.UUID
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("variant %s does not exist", e.VariantID)
}

type SizeNotAvailableError struct {
	VariantID uuid.UUID
	SizeValue string
}

func (e *SizeNotAvailableError) Error() string {
	return fmt.Sprintf("size %s is not available for variant %s", e.SizeValue, e.VariantID)
}

type DuplicateStockEntryError struct {
	Key string
}

func (e *DuplicateStockEntryError) Error() string {
	return fmt.Sprintf("duplicate stock entry %s", e.Key)
}

type InvalidOrderStatusTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidOrderStatusTransitionError) Error() string {
	return fmt.Sprintf("order status cannot change from %s to %s", e.From, e.To)
}

type InvalidPaymentStatusError struct {
	OrderStatus   OrderStatus
	PaymentStatus PaymentStatus
}

func (e *InvalidPaymentStatusError) Error() string {
	return fmt.Sprintf("payment status %s is not allowed for order status %s",
		e.PaymentStatus, e.OrderStatus)
}

type CannotUpdateCustomerError struct {
	Status OrderStatus
}

func (e *CannotUpdateCustomerError) Error() string {
	return fmt.Sprintf("customer cannot be updated while order is %s", e.Status)
}

type CannotUpdateShippingAddressError struct {
	Status OrderStatus
}

func (e *CannotUpdateShippingAddressError) Error() string {
	return fmt.Sprintf("shipping address cannot be updated while order is %s", e.Status)
}

type CannotUpdateProductsError struct {
	Status OrderStatus
}

func (e *CannotUpdateProductsError) Error() string {
	return fmt.Sprintf("products cannot be updated while order is %s", e.Status)
}

type CannotUpdatePaymentInfoError struct {
	Status OrderStatus
}

func (e *CannotUpdatePaymentInfoError) Error() string {
	return fmt.Sprintf("payment info cannot be updated while order is %s", e.Status)
}

type PaymentAlreadyMadeError struct {
	OrderID uuid.UUID
}

func (e *PaymentAlreadyMadeError) Error() string {
	return fmt.Sprintf("order %s is already paid", e.OrderID)
}

type PaymentDeadlineExceededError struct {
	OrderID  uuid.UUID
	Deadline time.Time
}

func (e *PaymentDeadlineExceededError) Error() string {
	return fmt.Sprintf("payment deadline for order %s exceeded at %s",
		e.OrderID, e.Deadline.Format(time.RFC3339))
}

type InvalidCreatorError struct {
	AdminID uuid.UUID
}

func (e *InvalidCreatorError) Error() string {
	return fmt.Sprintf("admin %s does not exist", e.AdminID)
}
