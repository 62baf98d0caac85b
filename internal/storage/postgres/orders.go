package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/domain/order"
)

type orderRepo struct {
	tx pgx.Tx
}

const orderColumns = `id, status, subtotal, total, created_at, updated_at`

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO orders (id, status, subtotal, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.Status, o.Subtotal, o.Total, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}
	return nil
}

func (r *orderRepo) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, id, `SELECT `+orderColumns+` FROM orders WHERE id = $1`)
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, id, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`)
}

func (r *orderRepo) get(ctx context.Context, id, query string) (*order.Order, error) {
	var o order.Order
	err := r.tx.QueryRow(ctx, query, id).
		Scan(&o.ID, &o.Status, &o.Subtotal, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &order.ReferenceNotFoundError{Kind: order.RefOrder, ID: id}
		}
		return nil, errors.Wrapf(err, "select order %s", id)
	}
	return &o, nil
}

func (r *orderRepo) SetTotals(ctx context.Context, id string, subtotal, total decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE orders SET subtotal = $2, total = $3, updated_at = now() WHERE id = $1`,
		id, subtotal, total,
	)
	if err != nil {
		return errors.Wrapf(err, "update totals of order %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &order.ReferenceNotFoundError{Kind: order.RefOrder, ID: id}
	}
	return nil
}

func (r *orderRepo) SetStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return errors.Wrapf(err, "update status of order %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &order.ReferenceNotFoundError{Kind: order.RefOrder, ID: id}
	}
	return nil
}
