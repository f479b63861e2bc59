package repo

import (
	"database/sql"
	"time"

	"github.com/evermart/order-service/internal/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	OrderID         uuid.UUID       `db:"order_id"`
	Status          string          `db:"status"`
	CustomerName    string          `db:"customer_name"`
	CustomerEmail   string          `db:"customer_email"`
	CustomerPhone   sql.NullString  `db:"customer_phone"`
	ShipCountry     sql.NullString  `db:"ship_country"`
	ShipCity        sql.NullString  `db:"ship_city"`
	ShipStreet      sql.NullString  `db:"ship_street"`
	ShipZIP         sql.NullString  `db:"ship_zip"`
	PaymentStatus   string          `db:"payment_status"`
	PaidAt          sql.NullTime    `db:"paid_at"`
	PaymentDeadline time.Time       `db:"payment_deadline"`
	CreatorAdminID  uuid.NullUUID   `db:"creator_admin_id"`
	TotalAmount     decimal.Decimal `db:"total_amount"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

type OrderItem struct {
	OrderID     uuid.UUID       `db:"order_id"`
	ProductID   uuid.UUID       `db:"product_id"`
	VariantID   uuid.UUID       `db:"variant_id"`
	SizeValue   string          `db:"size_value"`
	Quantity    int             `db:"quantity"`
	ProductName string          `db:"product_name"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
}

type OrderOverview struct {
	OrderID       uuid.UUID       `db:"order_id"`
	Status        string          `db:"status"`
	CustomerEmail string          `db:"customer_email"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	PaymentStatus string          `db:"payment_status"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type ProductDetails struct {
	ProductID uuid.UUID       `db:"product_id"`
	Name      string          `db:"name"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	VariantID uuid.UUID       `db:"variant_id"`
	SizeValue string          `db:"size_value"`
	Stock     int             `db:"stock"`
}

func OrderToRow(o entities.Order) Order {
	return Order{
		OrderID:         o.ID,
		Status:          string(o.Status),
		CustomerName:    o.Customer.Name,
		CustomerEmail:   o.Customer.Email,
		CustomerPhone:   nullString(o.Customer.Phone),
		ShipCountry:     nullString(o.Shipping.Country),
		ShipCity:        nullString(o.Shipping.City),
		ShipStreet:      nullString(o.Shipping.Street),
		ShipZIP:         nullString(o.Shipping.ZIP),
		PaymentStatus:   string(o.Payment.Status),
		PaidAt:          nullTime(o.Payment.PaidAt),
		PaymentDeadline: o.Payment.Deadline,
		CreatorAdminID:  nullUUID(o.Creator.AdminID),
		TotalAmount:     o.TotalAmount(),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func OrderItemsToRows(o entities.Order) []OrderItem {
	var rows []OrderItem
	for _, p := range o.Products {
		for _, v := range p.Variants {
			for _, s := range v.Sizes {
				rows = append(rows, OrderItem{
					OrderID:     o.ID,
					ProductID:   p.ProductID,
					VariantID:   v.VariantID,
					SizeValue:   s.SizeValue,
					Quantity:    s.Quantity,
					ProductName: p.Name,
					UnitPrice:   p.UnitPrice,
				})
			}
		}
	}
	return rows
}

// OrderToEntity собирает агрегат из строки заказа и его позиций,
// группируя позиции по товару и варианту в порядке следования.
func OrderToEntity(o Order, items []OrderItem) entities.Order {
	order := entities.Order{
		ID: o.OrderID,
		Customer: entities.Customer{
			Name:  o.CustomerName,
			Email: o.CustomerEmail,
			Phone: nullStringToString(o.CustomerPhone),
		},
		Shipping: entities.ShippingAddress{
			Country: nullStringToString(o.ShipCountry),
			City:    nullStringToString(o.ShipCity),
			Street:  nullStringToString(o.ShipStreet),
			ZIP:     nullStringToString(o.ShipZIP),
		},
		Status: entities.OrderStatus(o.Status),
		Payment: entities.PaymentInfo{
			Status:   entities.PaymentStatus(o.PaymentStatus),
			PaidAt:   nullTimeToPtr(o.PaidAt),
			Deadline: o.PaymentDeadline,
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.CreatorAdminID.Valid {
		order.Creator = entities.AdminCreator(o.CreatorAdminID.UUID)
	} else {
		order.Creator = entities.GuestCreator()
	}

	productIdx := make(map[uuid.UUID]int)
	variantIdx := make(map[uuid.UUID]map[uuid.UUID]int)
	for _, it := range items {
		pi, ok := productIdx[it.ProductID]
		if !ok {
			pi = len(order.Products)
			productIdx[it.ProductID] = pi
			variantIdx[it.ProductID] = make(map[uuid.UUID]int)
			order.Products = append(order.Products, entities.OrderProduct{
				ProductID: it.ProductID,
				Name:      it.ProductName,
				UnitPrice: it.UnitPrice,
			})
		}
		vi, ok := variantIdx[it.ProductID][it.VariantID]
		if !ok {
			vi = len(order.Products[pi].Variants)
			variantIdx[it.ProductID][it.VariantID] = vi
			order.Products[pi].Variants = append(order.Products[pi].Variants, entities.OrderVariant{
				VariantID: it.VariantID,
			})
		}
		order.Products[pi].Variants[vi].Sizes = append(order.Products[pi].Variants[vi].Sizes, entities.OrderSize{
			SizeValue: it.SizeValue,
			Quantity:  it.Quantity,
		})
	}
	return order
}

func OverviewToEntity(o OrderOverview) entities.OrderOverview {
	return entities.OrderOverview{
		OrderID:       o.OrderID,
		Status:        entities.OrderStatus(o.Status),
		CustomerEmail: o.CustomerEmail,
		TotalAmount:   o.TotalAmount,
		PaymentStatus: entities.PaymentStatus(o.PaymentStatus),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ProductDetailsToSnapshots группирует плоские строки join'а в снапшоты,
// сохраняя порядок строк.
func ProductDetailsToSnapshots(rows []ProductDetails) []entities.ProductStockSnapshot {
	var snapshots []entities.ProductStockSnapshot
	productIdx := make(map[uuid.UUID]int)
	variantIdx := make(map[uuid.UUID]map[uuid.UUID]int)
	for _, row := range rows {
		pi, ok := productIdx[row.ProductID]
		if !ok {
			pi = len(snapshots)
			productIdx[row.ProductID] = pi
			variantIdx[row.ProductID] = make(map[uuid.UUID]int)
			snapshots = append(snapshots, entities.ProductStockSnapshot{
				ProductID: row.ProductID,
				Name:      row.Name,
				UnitPrice: row.UnitPrice,
			})
		}
		vi, ok := variantIdx[row.ProductID][row.VariantID]
		if !ok {
			vi = len(snapshots[pi].Variants)
			variantIdx[row.ProductID][row.VariantID] = vi
			snapshots[pi].Variants = append(snapshots[pi].Variants, entities.VariantStockSnapshot{
				VariantID: row.VariantID,
			})
		}
		snapshots[pi].Variants[vi].Sizes = append(snapshots[pi].Variants[vi].Sizes, entities.SizeStockSnapshot{
			SizeValue: row.SizeValue,
			Stock:     row.Stock,
		})
	}
	return snapshots
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	if id == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: id, Valid: true}
}
