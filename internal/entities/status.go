package entities

type OrderStatus string

const (
	OrderStatusWaitingForPayment  OrderStatus = "WAITING_FOR_PAYMENT"
	OrderStatusWaitingForShipment OrderStatus = "WAITING_FOR_SHIPMENT"
	OrderStatusShipped            OrderStatus = "SHIPPED"
	OrderStatusCancelled          OrderStatus = "CANCELLED"
)

// SHIPPED и CANCELLED терминальные статусы.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusWaitingForPayment:  {OrderStatusWaitingForShipment, OrderStatusCancelled},
	OrderStatusWaitingForShipment: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:            {},
	OrderStatusCancelled:          {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, allowed := range orderStatusTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ReservesStock сообщает, удерживает ли заказ в этом статусе складской остаток.
func (s OrderStatus) ReservesStock() bool {
	return s == OrderStatusWaitingForPayment || s == OrderStatusWaitingForShipment
}

type PaymentStatus string

const (
	PaymentStatusInGateway PaymentStatus = "IN_PAYMENT_GATEWAY"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusExpired   PaymentStatus = "EXPIRED"
)

var compatiblePaymentStatuses = map[OrderStatus][]PaymentStatus{
	OrderStatusWaitingForPayment:  {PaymentStatusInGateway},
	OrderStatusWaitingForShipment: {PaymentStatusPaid},
	OrderStatusShipped:            {PaymentStatusPaid},
	OrderStatusCancelled:          {PaymentStatusInGateway, PaymentStatusExpired},
}

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusInGateway, PaymentStatusPaid, PaymentStatusExpired:
		return true
	}
	return false
}

func (s OrderStatus) AllowsPaymentStatus(p PaymentStatus) bool {
	for _, allowed := range compatiblePaymentStatuses[s] {
		if allowed == p {
			return true
		}
	}
	return false
}
