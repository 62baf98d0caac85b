// Package inventory owns raw-material stock quantities and the append-only
// audit trail of every quantity change. All mutations go through the Ledger,
// which floor-checks debits and records one audit entry per movement inside
// the caller's atomic unit of work.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StockUnit is a tracked raw-material inventory record.
type StockUnit struct {
	ID       string
	Name     string
	Quantity decimal.Decimal
	Unit     string
}

// Action classifies a stock movement.
type Action string

const (
	// ActionDebit records stock consumed by a sale.
	ActionDebit Action = "debit"
	// ActionCredit records stock restored by a cancelled or reduced sale.
	ActionCredit Action = "credit"
)

// AuditEntry is an immutable record of a single stock movement.
type AuditEntry struct {
	ID          string
	Action      Action
	StockUnitID string
	Delta       decimal.Decimal
	Before      decimal.Decimal
	After       decimal.Decimal
	Reason      string
	OrderID     string
	LineItemID  string
	CreatedAt   time.Time
}

// Repository provides stock access inside a unit of work. GetForUpdate must
// lock the returned rows against concurrent mutation for the duration of the
// unit, so the read-check-write sequence in the Ledger cannot race.
type Repository interface {
	GetForUpdate(ctx context.Context, ids []string) ([]StockUnit, error)
	SetQuantity(ctx context.Context, id string, quantity decimal.Decimal) error
	List(ctx context.Context) ([]StockUnit, error)
}

// AuditLog appends audit entries inside the same unit of work as the stock
// change they describe.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// InsufficientStockError reports a debit that would drive a stock unit
// negative. Required is the quantity the rejected operation needs in total;
// Available is the quantity on hand before the operation.
type InsufficientStockError struct {
	StockUnitID string
	Name        string
	Required    decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.StockUnitID
	}
	return fmt.Sprintf("insufficient stock of %s: required %s, available %s",
		name, e.Required.String(), e.Available.String())
}
