package repo

import (
	"context"
	"fmt"

	"github.com/evermart/order-service/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type inventoryRepo struct {
	db
	qb sq.StatementBuilderType
}

func NewInventoryRepo(conn *sqlx.DB) *inventoryRepo {
	return &inventoryRepo{
		db: db{conn: conn},
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// RetrievePartialProductDetails читает минимальный срез остатков
// по товарам одним join'ом.
func (r *inventoryRepo) RetrievePartialProductDetails(ctx context.Context, productIDs []uuid.UUID) ([]entities.ProductStockSnapshot, error) {
	if len(productIDs) == 0 {
		return []entities.ProductStockSnapshot{}, nil
	}

	query, args := r.qb.Select(
		"p.product_id", "p.name", "p.unit_price",
		"v.variant_id", "s.size_value", "s.stock").
		From("products p").
		Join("product_variants v ON v.product_id = p.product_id").
		Join("variant_sizes s ON s.variant_id = v.variant_id").
		Where(sq.Eq{"p.product_id": productIDs}).
		OrderBy("p.product_id", "v.variant_id", "s.size_value").
		MustSql()

	var rows []ProductDetails
	if err := r.selectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select product details: %w", err)
	}
	return ProductDetailsToSnapshots(rows), nil
}

// ModifyStock применяет батч поправок guarded-update'ом: остаток меняется
// только если stock + adj >= 0, иначе значит кто-то успел списать
// конкурентно и вся транзакция откатывается с ErrStockConflict.
// Этого достаточно при read committed, сериализуемая изоляция не нужна.
func (r *inventoryRepo) ModifyStock(ctx context.Context, adjustments []entities.StockAdjustment) error {
	for _, adj := range adjustments {
		query, args := r.qb.Update("variant_sizes").
			Set("stock", sq.Expr("stock + ?", adj.Adjustment)).
			Where(sq.Eq{"variant_id": adj.VariantID, "size_value": adj.SizeValue}).
			Where(sq.Expr("stock + ? >= 0", adj.Adjustment)).
			MustSql()

		res, err := r.execContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to modify stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("variant %s size %s: %w", adj.VariantID, adj.SizeValue, entities.ErrStockConflict)
		}
	}
	return nil
}
