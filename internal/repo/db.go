package repo

import (
	"context"
	"database/sql"

	"github.com/evermart/order-service/pkg/trm"

	"github.com/jmoiron/sqlx"
)

// db исполняет запросы в транзакции из контекста, если она там есть.
type db struct {
	conn *sqlx.DB
}

func (d db) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return d.conn.ExecContext(ctx, query, args...)
}

func (d db) getContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	return d.conn.GetContext(ctx, dest, query, args...)
}

func (d db) selectContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	return d.conn.SelectContext(ctx, dest, query, args...)
}
