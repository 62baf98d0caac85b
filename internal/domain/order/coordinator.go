package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/domain/inventory"
)

// Op identifies a line-item mutation kind.
type Op string

const (
	OpAddItem        Op = "add_item"
	OpUpdateQuantity Op = "update_quantity"
	OpRemoveItem     Op = "remove_item"
	OpAttachAddon    Op = "attach_addon"
	OpDetachAddon    Op = "detach_addon"
)

// Mutation describes one desired line-item change. Op selects the operation;
// the other fields are read per operation: OrderID for add_item, LineItemID
// for everything else, AddonID for attach/detach.
type Mutation struct {
	Op         Op
	OrderID    string
	LineItemID string
	MenuItemID string
	Quantity   int
	UnitPrice  *decimal.Decimal
	Notes      string
	Addons     []AddonSelection
	AddonID    string
}

// MutationResult is the committed outcome of a mutation. LineItem and Addons
// are nil for remove_item; Order carries the recomputed totals.
type MutationResult struct {
	OrderID  string
	LineItem *LineItem
	Addons   []AddonAssignment
	Order    OrderTotals
}

// Coordinator wraps every line-item mutation in one atomic unit of work:
// recipe resolution, ledger movements, row changes, audit writes, and the
// total recalculation commit or roll back together. It is also the only
// layer that translates storage failures into the caller-facing error
// taxonomy.
type Coordinator struct {
	runner  TxRunner
	mutator *Mutator
	recalc  *Recalculator

	newID func() string
	now   func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(runner TxRunner, mutator *Mutator, recalc *Recalculator) *Coordinator {
	return &Coordinator{
		runner:  runner,
		mutator: mutator,
		recalc:  recalc,
		newID:   func() string { return uuid.New().String() },
		now:     time.Now,
	}
}

// Execute runs the described mutation in one all-or-nothing unit. Any error
// from recipe resolution, the ledger, the mutator, or the recalculator aborts
// the whole unit; no row change, stock change, or audit entry survives a
// failure.
func (c *Coordinator) Execute(ctx context.Context, m Mutation) (*MutationResult, error) {
	var res *MutationResult
	err := c.runner.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		orderID := m.OrderID
		if m.Op != OpAddItem {
			li, err := uow.LineItems().Get(ctx, m.LineItemID)
			if err != nil {
				return err
			}
			orderID = li.OrderID
		}

		// Locking the order row serializes mutations on the same order;
		// cross-order mutations proceed in parallel.
		ord, err := uow.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ord.Status != StatusOpen {
			return &OrderNotOpenError{OrderID: ord.ID, Status: ord.Status}
		}

		var (
			li     *LineItem
			addons []AddonAssignment
		)
		switch m.Op {
		case OpAddItem:
			li, addons, err = c.mutator.AddItem(ctx, uow, AddItemParams{
				OrderID:    orderID,
				MenuItemID: m.MenuItemID,
				Quantity:   m.Quantity,
				UnitPrice:  m.UnitPrice,
				Notes:      m.Notes,
				Addons:     m.Addons,
			})
		case OpUpdateQuantity:
			li, err = c.mutator.UpdateQuantity(ctx, uow, m.LineItemID, m.Quantity)
		case OpRemoveItem:
			_, err = c.mutator.RemoveItem(ctx, uow, m.LineItemID)
		case OpAttachAddon:
			li, _, err = c.mutator.AttachAddon(ctx, uow, m.LineItemID, AddonSelection{
				AddonID:   m.AddonID,
				Quantity:  m.Quantity,
				UnitPrice: m.UnitPrice,
			})
		case OpDetachAddon:
			li, err = c.mutator.DetachAddon(ctx, uow, m.LineItemID, m.AddonID)
		default:
			return errors.Errorf("unknown mutation op %q", m.Op)
		}
		if err != nil {
			return err
		}

		if li != nil && addons == nil && m.Op != OpRemoveItem {
			addons, err = uow.LineItems().ListAddons(ctx, li.ID)
			if err != nil {
				return err
			}
		}

		totals, err := c.recalc.Recalculate(ctx, uow, orderID)
		if err != nil {
			return err
		}

		res = &MutationResult{
			OrderID:  orderID,
			LineItem: li,
			Addons:   addons,
			Order:    totals,
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// OpenOrder creates a new open order with zero totals.
func (c *Coordinator) OpenOrder(ctx context.Context) (*Order, error) {
	o := &Order{
		ID:        c.newID(),
		Status:    StatusOpen,
		Subtotal:  decimal.Zero,
		Total:     decimal.Zero,
		CreatedAt: c.now().UTC(),
		UpdatedAt: c.now().UTC(),
	}
	err := c.runner.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		return uow.Orders().Create(ctx, o)
	})
	if err != nil {
		return nil, classify(err)
	}
	return o, nil
}

// GetOrder returns the order with its line items and add-ons.
func (c *Coordinator) GetOrder(ctx context.Context, orderID string) (*OrderView, error) {
	var view *OrderView
	err := c.runner.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		ord, err := uow.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		items, err := uow.LineItems().ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}

		views := make([]LineItemView, 0, len(items))
		for _, li := range items {
			addons, err := uow.LineItems().ListAddons(ctx, li.ID)
			if err != nil {
				return err
			}
			views = append(views, LineItemView{LineItem: li, Addons: addons})
		}
		view = &OrderView{Order: *ord, Items: views}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return view, nil
}

// CompleteOrder transitions an open order to completed.
func (c *Coordinator) CompleteOrder(ctx context.Context, orderID string) (*Order, error) {
	return c.transition(ctx, orderID, StatusCompleted)
}

// CancelOrder transitions an open order to cancelled. Stock is not restored:
// voiding individual items beforehand is the caller's flow, and completed
// consumption stays consumed.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	return c.transition(ctx, orderID, StatusCancelled)
}

func (c *Coordinator) transition(ctx context.Context, orderID string, to Status) (*Order, error) {
	var out *Order
	err := c.runner.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		ord, err := uow.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ord.Status != StatusOpen {
			return &OrderNotOpenError{OrderID: ord.ID, Status: ord.Status}
		}
		if err := uow.Orders().SetStatus(ctx, orderID, to); err != nil {
			return err
		}
		ord.Status = to
		out = ord
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// classify maps an error raised inside the unit of work to the caller-facing
// taxonomy. Taxonomy errors pass through; serialization and deadlock
// failures become ErrConcurrentModification; everything else is a
// PersistenceError.
func classify(err error) error {
	var (
		insErr      *inventory.InsufficientStockError
		refErr      *ReferenceNotFoundError
		inactiveErr *InactiveReferenceError
		notOpenErr  *OrderNotOpenError
	)
	switch {
	case errors.As(err, &insErr),
		errors.As(err, &refErr),
		errors.As(err, &inactiveErr),
		errors.As(err, &notOpenErr),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrAddonAlreadyAttached),
		errors.Is(err, ErrConcurrentModification):
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected.
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return errors.Wrap(ErrConcurrentModification, pgErr.Code)
		}
	}

	return &PersistenceError{Err: err}
}
