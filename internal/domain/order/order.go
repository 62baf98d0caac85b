// Package order is the transactional core of the point of sale: every
// line-item mutation on an open order moves linked raw-material stock, writes
// an audit trail, and recomputes the order total inside one atomic unit of
// work. The Coordinator is the only entry point for mutations.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/domain/inventory"
)

// Status is the lifecycle state of an order. Orders are never deleted; they
// move to a terminal status instead.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Order is a guest check. Total always equals the sum of its line items'
// totals after any committed mutation; there is no tax model, so subtotal
// and total carry the same value.
type Order struct {
	ID        string
	Status    Status
	Subtotal  decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is one row on an order: a quantity of a specific menu item plus
// its attached add-ons. TotalPrice = Quantity*UnitPrice + sum of add-on
// totals.
type LineItem struct {
	ID         string
	OrderID    string
	MenuItemID string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Notes      string
	CreatedAt  time.Time
}

// AddonAssignment is an add-on attached to a specific line item. It never
// outlives its line item.
type AddonAssignment struct {
	ID         string
	LineItemID string
	AddonID    string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// OrderView is an order with its line items and their add-ons resolved.
type OrderView struct {
	Order Order
	Items []LineItemView
}

// LineItemView pairs a line item with its add-on assignments.
type LineItemView struct {
	LineItem LineItem
	Addons   []AddonAssignment
}

// Repository provides order-row persistence inside a unit of work.
// GetForUpdate locks the order row, serializing concurrent mutations against
// the same order for the duration of the unit.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	SetTotals(ctx context.Context, id string, subtotal, total decimal.Decimal) error
	SetStatus(ctx context.Context, id string, status Status) error
}

// LineItemRepository provides line-item and add-on-assignment persistence
// inside a unit of work. Lookups for unknown identifiers return
// *ReferenceNotFoundError.
type LineItemRepository interface {
	Create(ctx context.Context, li *LineItem) error
	Get(ctx context.Context, id string) (*LineItem, error)
	ListByOrder(ctx context.Context, orderID string) ([]LineItem, error)
	UpdateQuantity(ctx context.Context, id string, quantity int, totalPrice decimal.Decimal) error
	UpdateTotal(ctx context.Context, id string, totalPrice decimal.Decimal) error
	Delete(ctx context.Context, id string) error

	CreateAddon(ctx context.Context, a *AddonAssignment) error
	GetAddon(ctx context.Context, lineItemID, addonID string) (*AddonAssignment, error)
	ListAddons(ctx context.Context, lineItemID string) ([]AddonAssignment, error)
	DeleteAddon(ctx context.Context, id string) error
	DeleteAddonsByLineItem(ctx context.Context, lineItemID string) error
}

// UnitOfWork groups the repositories taking part in one atomic mutation.
// Everything read or written through it commits or rolls back together.
type UnitOfWork interface {
	Orders() Repository
	LineItems() LineItemRepository
	Stock() inventory.Repository
	Audit() inventory.AuditLog
}

// TxRunner opens a unit of work, runs fn inside it, and commits only when fn
// returns nil. Any error from fn aborts the unit with nothing applied.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
