package inventory

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Delta describes one stock movement within a logical mutation. A negative
// quantity consumes stock, a positive one restores it. OrderID and LineItemID
// correlate the movement with the mutation that caused it.
type Delta struct {
	StockUnitID string
	Quantity    decimal.Decimal
	Reason      string
	OrderID     string
	LineItemID  string
}

// Ledger applies batches of stock deltas. It holds no storage of its own;
// every call operates on the repositories of the caller's unit of work, so a
// failed batch is rolled back together with the rest of the mutation.
type Ledger struct {
	newID func() string
	now   func() time.Time
}

// NewLedger creates a Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

// ApplyDeltas applies all deltas or none. Each debit is floor-checked against
// the locked current quantity and fails with *InsufficientStockError when the
// result would be negative; credits never fail on quantity grounds. One audit
// entry is appended per movement. Deltas for unknown stock units fail the
// whole batch.
//
// Callers are expected to pass at most one delta per stock unit (the recipe
// resolver aggregates duplicates); when duplicates do arrive they are applied
// cumulatively against the running quantity.
func (l *Ledger) ApplyDeltas(ctx context.Context, stock Repository, audit AuditLog, deltas []Delta) ([]AuditEntry, error) {
	if len(deltas) == 0 {
		return nil, nil
	}

	ids := make([]string, len(deltas))
	for i, d := range deltas {
		ids[i] = d.StockUnitID
	}

	units, err := stock.GetForUpdate(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock stock units")
	}
	byID := make(map[string]*StockUnit, len(units))
	for i := range units {
		byID[units[i].ID] = &units[i]
	}

	entries := make([]AuditEntry, 0, len(deltas))
	for _, d := range deltas {
		unit, ok := byID[d.StockUnitID]
		if !ok {
			return nil, errors.Errorf("stock unit %s not found", d.StockUnitID)
		}

		before := unit.Quantity
		after := before.Add(d.Quantity)
		if d.Quantity.IsNegative() && after.IsNegative() {
			return nil, &InsufficientStockError{
				StockUnitID: unit.ID,
				Name:        unit.Name,
				Required:    d.Quantity.Neg(),
				Available:   before,
			}
		}

		if err := stock.SetQuantity(ctx, unit.ID, after); err != nil {
			return nil, errors.Wrapf(err, "update stock unit %s", unit.ID)
		}
		unit.Quantity = after

		entry := AuditEntry{
			ID:          l.newID(),
			Action:      actionFor(d.Quantity),
			StockUnitID: unit.ID,
			Delta:       d.Quantity,
			Before:      before,
			After:       after,
			Reason:      d.Reason,
			OrderID:     d.OrderID,
			LineItemID:  d.LineItemID,
			CreatedAt:   l.now().UTC(),
		}
		if err := audit.Append(ctx, entry); err != nil {
			return nil, errors.Wrapf(err, "append audit entry for %s", unit.ID)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func actionFor(quantity decimal.Decimal) Action {
	if quantity.IsNegative() {
		return ActionDebit
	}
	return ActionCredit
}
