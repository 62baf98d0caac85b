package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/domain/order"
)

type lineItemRepo struct {
	tx pgx.Tx
}

const lineItemColumns = `id, order_id, menu_item_id, quantity, unit_price, total_price, notes, created_at`

func (r *lineItemRepo) Create(ctx context.Context, li *order.LineItem) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO line_items
		(id, order_id, menu_item_id, quantity, unit_price, total_price, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		li.ID, li.OrderID, li.MenuItemID, li.Quantity, li.UnitPrice, li.TotalPrice, li.Notes, li.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert line item %s", li.ID)
	}
	return nil
}

func (r *lineItemRepo) Get(ctx context.Context, id string) (*order.LineItem, error) {
	var li order.LineItem
	err := r.tx.QueryRow(ctx, `SELECT `+lineItemColumns+` FROM line_items WHERE id = $1`, id).
		Scan(&li.ID, &li.OrderID, &li.MenuItemID, &li.Quantity, &li.UnitPrice, &li.TotalPrice, &li.Notes, &li.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &order.ReferenceNotFoundError{Kind: order.RefLineItem, ID: id}
		}
		return nil, errors.Wrapf(err, "select line item %s", id)
	}
	return &li, nil
}

func (r *lineItemRepo) ListByOrder(ctx context.Context, orderID string) ([]order.LineItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+lineItemColumns+` FROM line_items
		WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "list line items of order %s", orderID)
	}
	defer rows.Close()

	var items []order.LineItem
	for rows.Next() {
		var li order.LineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.MenuItemID, &li.Quantity, &li.UnitPrice, &li.TotalPrice, &li.Notes, &li.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan line item")
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (r *lineItemRepo) UpdateQuantity(ctx context.Context, id string, quantity int, totalPrice decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE line_items SET quantity = $2, total_price = $3 WHERE id = $1`,
		id, quantity, totalPrice,
	)
	if err != nil {
		return errors.Wrapf(err, "update quantity of line item %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &order.ReferenceNotFoundError{Kind: order.RefLineItem, ID: id}
	}
	return nil
}

func (r *lineItemRepo) UpdateTotal(ctx context.Context, id string, totalPrice decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE line_items SET total_price = $2 WHERE id = $1`, id, totalPrice)
	if err != nil {
		return errors.Wrapf(err, "update total of line item %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &order.ReferenceNotFoundError{Kind: order.RefLineItem, ID: id}
	}
	return nil
}

func (r *lineItemRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM line_items WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete line item %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &order.ReferenceNotFoundError{Kind: order.RefLineItem, ID: id}
	}
	return nil
}

const addonColumns = `id, line_item_id, addon_id, quantity, unit_price, total_price`

func (r *lineItemRepo) CreateAddon(ctx context.Context, a *order.AddonAssignment) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO addon_assignments
		(id, line_item_id, addon_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.LineItemID, a.AddonID, a.Quantity, a.UnitPrice, a.TotalPrice,
	)
	if err != nil {
		return errors.Wrapf(err, "insert add-on assignment %s", a.ID)
	}
	return nil
}

func (r *lineItemRepo) GetAddon(ctx context.Context, lineItemID, addonID string) (*order.AddonAssignment, error) {
	var a order.AddonAssignment
	err := r.tx.QueryRow(ctx, `SELECT `+addonColumns+` FROM addon_assignments
		WHERE line_item_id = $1 AND addon_id = $2`, lineItemID, addonID).
		Scan(&a.ID, &a.LineItemID, &a.AddonID, &a.Quantity, &a.UnitPrice, &a.TotalPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &order.ReferenceNotFoundError{Kind: order.RefAddon, ID: addonID}
		}
		return nil, errors.Wrapf(err, "select add-on assignment %s/%s", lineItemID, addonID)
	}
	return &a, nil
}

func (r *lineItemRepo) ListAddons(ctx context.Context, lineItemID string) ([]order.AddonAssignment, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+addonColumns+` FROM addon_assignments
		WHERE line_item_id = $1 ORDER BY id`, lineItemID)
	if err != nil {
		return nil, errors.Wrapf(err, "list add-on assignments of line item %s", lineItemID)
	}
	defer rows.Close()

	var out []order.AddonAssignment
	for rows.Next() {
		var a order.AddonAssignment
		if err := rows.Scan(&a.ID, &a.LineItemID, &a.AddonID, &a.Quantity, &a.UnitPrice, &a.TotalPrice); err != nil {
			return nil, errors.Wrap(err, "scan add-on assignment")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *lineItemRepo) DeleteAddon(ctx context.Context, id string) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM addon_assignments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete add-on assignment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &order.ReferenceNotFoundError{Kind: order.RefAddon, ID: id}
	}
	return nil
}

func (r *lineItemRepo) DeleteAddonsByLineItem(ctx context.Context, lineItemID string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM addon_assignments WHERE line_item_id = $1`, lineItemID)
	if err != nil {
		return errors.Wrapf(err, "delete add-on assignments of line item %s", lineItemID)
	}
	return nil
}
