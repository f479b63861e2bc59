package handler

import (
	"time"

	"github.com/evermart/order-service/internal/entities"
	"github.com/evermart/order-service/internal/service"

	"github.com/google/uuid"
)

type CustomerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

type ShippingAddressRequest struct {
	Country string `json:"country" validate:"required"`
	City    string `json:"city" validate:"required"`
	Street  string `json:"street" validate:"required"`
	ZIP     string `json:"zip"`
}

type OrderSizeRequest struct {
	SizeValue string `json:"size_value" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type OrderVariantRequest struct {
	VariantID string             `json:"variant_id" validate:"required,uuid"`
	Sizes     []OrderSizeRequest `json:"sizes" validate:"required,min=1,dive"`
}

type OrderProductRequest struct {
	ProductID string                `json:"product_id" validate:"required,uuid"`
	Variants  []OrderVariantRequest `json:"variants" validate:"required,min=1,dive"`
}

type CreateOrderRequest struct {
	Customer        CustomerRequest        `json:"customer" validate:"required"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" validate:"required"`
	Products        []OrderProductRequest  `json:"products" validate:"required,min=1,dive"`
}

type CreateAdminOrderRequest struct {
	AdminID         string                 `json:"admin_id" validate:"required,uuid"`
	Customer        CustomerRequest        `json:"customer" validate:"required"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" validate:"required"`
	Products        []OrderProductRequest  `json:"products" validate:"required,min=1,dive"`
	Status          string                 `json:"status" validate:"required"`
	PaymentStatus   string                 `json:"payment_status" validate:"required"`
	PaymentDeadline time.Time              `json:"payment_deadline"`
	PaidAt          *time.Time             `json:"paid_at"`
}

type CreateOrderResponse struct {
	OrderID string `json:"order_id"`
}

type ConfirmPaymentRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

type OrderStatsResponse struct {
	Orders int `json:"orders"`
}

type PurchasedResponse struct {
	Purchased bool `json:"purchased"`
}

func productsToInput(products []OrderProductRequest) ([]service.OrderProductInput, error) {
	inputs := make([]service.OrderProductInput, 0, len(products))
	for _, p := range products {
		productID, err := uuid.Parse(p.ProductID)
		if err != nil {
			return nil, err
		}
		input := service.OrderProductInput{ProductID: productID}
		for _, v := range p.Variants {
			variantID, err := uuid.Parse(v.VariantID)
			if err != nil {
				return nil, err
			}
			variant := service.OrderVariantInput{VariantID: variantID}
			for _, s := range v.Sizes {
				variant.Sizes = append(variant.Sizes, service.OrderSizeInput{
					SizeValue: s.SizeValue,
					Quantity:  s.Quantity,
				})
			}
			input.Variants = append(input.Variants, variant)
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func customerToEntity(c CustomerRequest) entities.Customer {
	return entities.Customer{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

func shippingToEntity(a ShippingAddressRequest) entities.ShippingAddress {
	return entities.ShippingAddress{Country: a.Country, City: a.City, Street: a.Street, ZIP: a.ZIP}
}

type OrderSizeJSON struct {
	SizeValue string `json:"size_value"`
	Quantity  int    `json:"quantity"`
}

type OrderVariantJSON struct {
	VariantID string          `json:"variant_id"`
	Sizes     []OrderSizeJSON `json:"sizes"`
}

type OrderProductJSON struct {
	ProductID string             `json:"product_id"`
	Name      string             `json:"name"`
	UnitPrice string             `json:"unit_price"`
	Variants  []OrderVariantJSON `json:"variants"`
}

type OrderJSON struct {
	OrderID         string             `json:"order_id"`
	Status          string             `json:"status"`
	Customer        CustomerRequest    `json:"customer"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address"`
	PaymentStatus   string             `json:"payment_status"`
	PaidAt          *time.Time         `json:"paid_at,omitempty"`
	PaymentDeadline time.Time          `json:"payment_deadline"`
	TotalAmount     string             `json:"total_amount"`
	Products        []OrderProductJSON `json:"products"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func OrderEntityToJSON(o entities.Order) OrderJSON {
	res := OrderJSON{
		OrderID: o.ID.String(),
		Status:  string(o.Status),
		Customer: CustomerRequest{
			Name:  o.Customer.Name,
			Email: o.Customer.Email,
			Phone: o.Customer.Phone,
		},
		ShippingAddress: ShippingAddressRequest{
			Country: o.Shipping.Country,
			City:    o.Shipping.City,
			Street:  o.Shipping.Street,
			ZIP:     o.Shipping.ZIP,
		},
		PaymentStatus:   string(o.Payment.Status),
		PaidAt:          o.Payment.PaidAt,
		PaymentDeadline: o.Payment.Deadline,
		TotalAmount:     o.TotalAmount().String(),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, p := range o.Products {
		product := OrderProductJSON{
			ProductID: p.ProductID.String(),
			Name:      p.Name,
			UnitPrice: p.UnitPrice.String(),
		}
		for _, v := range p.Variants {
			variant := OrderVariantJSON{VariantID: v.VariantID.String()}
			for _, s := range v.Sizes {
				variant.Sizes = append(variant.Sizes, OrderSizeJSON{SizeValue: s.SizeValue, Quantity: s.Quantity})
			}
			product.Variants = append(product.Variants, variant)
		}
		res.Products = append(res.Products, product)
	}
	return res
}

type OrderOverviewJSON struct {
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	CustomerEmail string    `json:"customer_email"`
	TotalAmount   string    `json:"total_amount"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func OverviewEntityToJSON(o entities.OrderOverview) OrderOverviewJSON {
	return OrderOverviewJSON{
		OrderID:       o.OrderID.String(),
		Status:        string(o.Status),
		CustomerEmail: o.CustomerEmail,
		TotalAmount:   o.TotalAmount.String(),
		PaymentStatus: string(o.PaymentStatus),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
