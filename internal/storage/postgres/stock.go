package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/domain/inventory"
)

type stockRepo struct {
	tx pgx.Tx
}

// GetForUpdate locks the requested stock rows in id order, so concurrent
// mutations touching overlapping stock acquire locks in the same sequence.
func (r *stockRepo) GetForUpdate(ctx context.Context, ids []string) ([]inventory.StockUnit, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, name, quantity, unit FROM stock_units
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock stock units")
	}
	defer rows.Close()

	var units []inventory.StockUnit
	for rows.Next() {
		var u inventory.StockUnit
		if err := rows.Scan(&u.ID, &u.Name, &u.Quantity, &u.Unit); err != nil {
			return nil, errors.Wrap(err, "scan stock unit")
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *stockRepo) SetQuantity(ctx context.Context, id string, quantity decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_units SET quantity = $2, updated_at = now() WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return errors.Wrapf(err, "update stock unit %s", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("stock unit %s not found", id)
	}
	return nil
}

func (r *stockRepo) List(ctx context.Context) ([]inventory.StockUnit, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, name, quantity, unit FROM stock_units ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list stock units")
	}
	defer rows.Close()

	var units []inventory.StockUnit
	for rows.Next() {
		var u inventory.StockUnit
		if err := rows.Scan(&u.ID, &u.Name, &u.Quantity, &u.Unit); err != nil {
			return nil, errors.Wrap(err, "scan stock unit")
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

type auditLog struct {
	tx pgx.Tx
}

func (l *auditLog) Append(ctx context.Context, e inventory.AuditEntry) error {
	_, err := l.tx.Exec(ctx, `INSERT INTO stock_audit
		(id, action, stock_unit_id, delta, before_qty, after_qty, reason, order_id, line_item_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Action, e.StockUnitID, e.Delta, e.Before, e.After, e.Reason, e.OrderID, e.LineItemID, e.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert audit entry for %s", e.StockUnitID)
	}
	return nil
}
