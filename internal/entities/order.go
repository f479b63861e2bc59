package entities

import (
	"bytes"
	"encoding/gob"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	Name  string
	Email string
	Phone string
}

type ShippingAddress struct {
	Country string
	City    string
	Street  string
	ZIP     string
}

type OrderSize struct {
	SizeValue string
	Quantity  int
}

type OrderVariant struct {
	VariantID uuid.UUID
	Sizes     []OrderSize
}

type OrderProduct struct {
	ProductID uuid.UUID
	// Имя и цена денормализованы в момент оформления заказа.
	Name      string
	UnitPrice decimal.Decimal
	Variants  []OrderVariant
}

// Creator: заказ создаёт либо гость (AdminID == uuid.Nil), либо админ.
type Creator struct {
	AdminID uuid.UUID
}

func GuestCreator() Creator {
	return Creator{}
}

func AdminCreator(adminID uuid.UUID) Creator {
	return Creator{AdminID: adminID}
}

func (c Creator) IsAdmin() bool {
	return c.AdminID != uuid.Nil
}

type Order struct {
	ID        uuid.UUID
	Customer  Customer
	Shipping  ShippingAddress
	Status    OrderStatus
	Payment   PaymentInfo
	Creator   Creator
	Products  []OrderProduct
	CreatedAt time.Time
	UpdatedAt time.Time
}

var errEmptyProductName = errors.New("order product name is empty")

func NewOrder(
	id uuid.UUID,
	customer Customer,
	shipping ShippingAddress,
	status OrderStatus,
	payment PaymentInfo,
	creator Creator,
	products []OrderProduct,
	now time.Time,
) (Order, error) {
	if !status.IsValid() {
		return Order{}, ErrInvalidOrderStatus
	}
	if !status.AllowsPaymentStatus(payment.Status) {
		return Order{}, &InvalidPaymentStatusError{OrderStatus: status, PaymentStatus: payment.Status}
	}
	for _, p := range products {
		if p.Name == "" {
			return Order{}, errEmptyProductName
		}
	}
	return Order{
		ID:        id,
		Customer:  customer,
		Shipping:  shipping,
		Status:    status,
		Payment:   payment,
		Creator:   creator,
		Products:  products,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TotalAmount считается из агрегата, никакого внешнего состояния.
func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Products {
		quantity := 0
		for _, v := range p.Variants {
			for _, s := range v.Sizes {
				quantity += s.Quantity
			}
		}
		total = total.Add(p.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	}
	return total
}

func (o *Order) ChangeStatus(to OrderStatus) error {
	if !o.Status.CanTransitionTo(to) {
		return &InvalidOrderStatusTransitionError{From: o.Status, To: to}
	}
	if !to.AllowsPaymentStatus(o.Payment.Status) {
		return &InvalidPaymentStatusError{OrderStatus: to, PaymentStatus: o.Payment.Status}
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

// MarkPaid переводит заказ в WAITING_FOR_SHIPMENT и фиксирует момент оплаты.
// Остатки при этом не трогаются: резерв был списан при создании заказа.
func (o *Order) MarkPaid(now time.Time) error {
	if o.Payment.IsPaid() {
		return &PaymentAlreadyMadeError{OrderID: o.ID}
	}
	if !o.Status.CanTransitionTo(OrderStatusWaitingForShipment) {
		return &InvalidOrderStatusTransitionError{From: o.Status, To: OrderStatusWaitingForShipment}
	}
	o.Status = OrderStatusWaitingForShipment
	o.Payment.Status = PaymentStatusPaid
	o.Payment.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

// После начала отгрузки коммерческое содержимое заказа заморожено.

func (o *Order) UpdateCustomer(customer Customer) error {
	if o.Status != OrderStatusWaitingForPayment && o.Status != OrderStatusWaitingForShipment {
		return &CannotUpdateCustomerError{Status: o.Status}
	}
	o.Customer = customer
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) UpdateShippingAddress(shipping ShippingAddress) error {
	if o.Status != OrderStatusWaitingForPayment && o.Status != OrderStatusWaitingForShipment {
		return &CannotUpdateShippingAddressError{Status: o.Status}
	}
	o.Shipping = shipping
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) UpdateProducts(products []OrderProduct) error {
	if o.Status != OrderStatusWaitingForPayment {
		return &CannotUpdateProductsError{Status: o.Status}
	}
	for _, p := range products {
		if p.Name == "" {
			return errEmptyProductName
		}
	}
	o.Products = products
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) UpdatePaymentInfo(payment PaymentInfo) error {
	if o.Status != OrderStatusWaitingForPayment {
		return &CannotUpdatePaymentInfoError{Status: o.Status}
	}
	if !o.Status.AllowsPaymentStatus(payment.Status) {
		return &InvalidPaymentStatusError{OrderStatus: o.Status, PaymentStatus: payment.Status}
	}
	o.Payment = payment
	o.UpdatedAt = time.Now()
	return nil
}

// OrderOverview это read-проекция для списков, независимая от write-агрегата.
type OrderOverview struct {
	OrderID       uuid.UUID
	Status        OrderStatus
	CustomerEmail string
	TotalAmount   decimal.Decimal
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (o *Order) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Order) Unmarshal(data []byte) error {
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	return dec.Decode(o)
}

func init() {
	gob.Register(Order{})
	gob.Register(OrderProduct{})
	gob.Register(OrderVariant{})
	gob.Register(OrderSize{})
}
