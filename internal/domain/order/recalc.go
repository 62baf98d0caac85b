package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// OrderTotals is the recomputed subtotal/total pair of an order.
type OrderTotals struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// Recalculator recomputes an order's totals from its persisted line items.
// It is the single source of truth for order totals and runs as the final
// step of every mutation.
type Recalculator struct{}

// NewRecalculator creates a Recalculator.
func NewRecalculator() *Recalculator {
	return &Recalculator{}
}

// Recalculate sums the total price of every currently-persisted line item of
// the order and writes the result as both subtotal and total (there is no tax
// model in this domain). It is idempotent: with no intervening mutation a
// second call yields the same totals.
func (r *Recalculator) Recalculate(ctx context.Context, uow UnitOfWork, orderID string) (OrderTotals, error) {
	items, err := uow.LineItems().ListByOrder(ctx, orderID)
	if err != nil {
		return OrderTotals{}, errors.Wrap(err, "list line items")
	}

	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(li.TotalPrice)
	}
	subtotal = subtotal.Round(2)

	if err := uow.Orders().SetTotals(ctx, orderID, subtotal, subtotal); err != nil {
		return OrderTotals{}, errors.Wrap(err, "write order totals")
	}
	return OrderTotals{Subtotal: subtotal, Total: subtotal}, nil
}
