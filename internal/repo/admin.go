package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type adminRepo struct {
	db
	qb sq.StatementBuilderType
}

func NewAdminRepo(conn *sqlx.DB) *adminRepo {
	return &adminRepo{
		db: db{conn: conn},
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *adminRepo) AdminExists(ctx context.Context, adminID uuid.UUID) (bool, error) {
	sub := r.qb.Select("1").From("admins").Where(sq.Eq{"admin_id": adminID})
	query, args := r.qb.Select().Column(sq.Expr("EXISTS(?)", sub)).MustSql()

	var exists bool
	if err := r.getContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check admin existence: %w", err)
	}
	return exists, nil
}
