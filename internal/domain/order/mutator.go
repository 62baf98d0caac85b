package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/domain/catalog"
	"github.com/comanda-pos/comanda/internal/domain/inventory"
	"github.com/comanda-pos/comanda/internal/domain/recipe"
)

// AddonSelection selects an add-on for a new or existing line item. A nil
// UnitPrice defaults to the catalog price.
type AddonSelection struct {
	AddonID   string
	Quantity  int
	UnitPrice *decimal.Decimal
}

// AddItemParams holds the input for adding a line item to an order. A nil
// UnitPrice defaults to the catalog price of the menu item.
type AddItemParams struct {
	OrderID    string
	MenuItemID string
	Quantity   int
	UnitPrice  *decimal.Decimal
	Notes      string
	Addons     []AddonSelection
}

// Mutator creates, updates, and deletes line items and their add-on
// assignments, driving the inventory ledger through the recipe resolver.
// Every method operates on the repositories of the caller's unit of work and
// returns without committing; atomicity belongs to the Coordinator.
type Mutator struct {
	catalog catalog.Source
	recipes *recipe.Resolver
	ledger  *inventory.Ledger

	newID func() string
	now   func() time.Time
}

// NewMutator creates a Mutator with the required collaborators.
func NewMutator(cat catalog.Source, recipes *recipe.Resolver, ledger *inventory.Ledger) *Mutator {
	return &Mutator{
		catalog: cat,
		recipes: recipes,
		ledger:  ledger,
		newID:   func() string { return uuid.New().String() },
		now:     time.Now,
	}
}

// AddItem always creates a new line item; existing line items for the same
// menu item are never merged or incremented. Merging is a UI decision, not a
// core invariant.
func (m *Mutator) AddItem(ctx context.Context, uow UnitOfWork, p AddItemParams) (*LineItem, []AddonAssignment, error) {
	if p.Quantity <= 0 {
		return nil, nil, ErrInvalidQuantity
	}
	for _, sel := range p.Addons {
		if sel.Quantity <= 0 {
			return nil, nil, errors.Wrapf(ErrInvalidQuantity, "add-on %s", sel.AddonID)
		}
	}

	item, err := m.menuItem(ctx, p.MenuItemID)
	if err != nil {
		return nil, nil, err
	}
	unitPrice := item.Price
	if p.UnitPrice != nil {
		unitPrice = *p.UnitPrice
	}

	lineItemID := m.newID()
	deltas, err := m.consumption(ctx, p.MenuItemID, p.Quantity, "add item", p.OrderID, lineItemID)
	if err != nil {
		return nil, nil, err
	}

	addons := make([]AddonAssignment, 0, len(p.Addons))
	for _, sel := range p.Addons {
		a, addonDeltas, err := m.buildAddon(ctx, lineItemID, p.OrderID, sel)
		if err != nil {
			return nil, nil, err
		}
		addons = append(addons, *a)
		deltas = append(deltas, addonDeltas...)
	}

	if _, err := m.ledger.ApplyDeltas(ctx, uow.Stock(), uow.Audit(), deltas); err != nil {
		return nil, nil, err
	}

	total := unitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
	for _, a := range addons {
		total = total.Add(a.TotalPrice)
	}

	li := &LineItem{
		ID:         lineItemID,
		OrderID:    p.OrderID,
		MenuItemID: p.MenuItemID,
		Quantity:   p.Quantity,
		UnitPrice:  unitPrice,
		TotalPrice: total.Round(2),
		Notes:      p.Notes,
		CreatedAt:  m.now().UTC(),
	}
	if err := uow.LineItems().Create(ctx, li); err != nil {
		return nil, nil, errors.Wrap(err, "create line item")
	}
	for i := range addons {
		if err := uow.LineItems().CreateAddon(ctx, &addons[i]); err != nil {
			return nil, nil, errors.Wrapf(err, "create add-on assignment %s", addons[i].AddonID)
		}
	}

	return li, addons, nil
}

// UpdateQuantity changes a line item's quantity, crediting freed stock on a
// decrease and debiting the additional requirement on an increase. A failed
// debit leaves the line item at its previous quantity.
func (m *Mutator) UpdateQuantity(ctx context.Context, uow UnitOfWork, lineItemID string, quantity int) (*LineItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	li, err := m.lineItem(ctx, uow, lineItemID)
	if err != nil {
		return nil, err
	}
	if quantity == li.Quantity {
		return li, nil
	}

	diff := quantity - li.Quantity
	freed := diff < 0
	step := diff
	if freed {
		step = -diff
	}
	reqs, err := m.recipes.Resolve(ctx, li.MenuItemID, step)
	if err != nil {
		return nil, err
	}

	deltas := make([]inventory.Delta, 0, len(reqs))
	reason := "increase quantity"
	if freed {
		reason = "decrease quantity"
	}
	for _, r := range reqs {
		qty := r.Quantity.Neg()
		if freed {
			qty = r.Quantity
		}
		deltas = append(deltas, inventory.Delta{
			StockUnitID: r.StockUnitID,
			Quantity:    qty,
			Reason:      reason,
			OrderID:     li.OrderID,
			LineItemID:  li.ID,
		})
	}

	if _, err := m.ledger.ApplyDeltas(ctx, uow.Stock(), uow.Audit(), deltas); err != nil {
		var insErr *inventory.InsufficientStockError
		if errors.As(err, &insErr) {
			// The terminal shows what the new quantity needs in total, not
			// just the missing increment.
			m.reportFullRequirement(ctx, insErr, li.MenuItemID, quantity)
		}
		return nil, err
	}

	addonTotal, err := m.addonTotal(ctx, uow, li.ID)
	if err != nil {
		return nil, err
	}
	total := li.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))).Add(addonTotal).Round(2)
	if err := uow.LineItems().UpdateQuantity(ctx, li.ID, quantity, total); err != nil {
		return nil, errors.Wrap(err, "update line item quantity")
	}

	li.Quantity = quantity
	li.TotalPrice = total
	return li, nil
}

// RemoveItem deletes a line item and its add-on assignments, restoring stock
// for the item's own recipe and for each attached add-on's recipe exactly
// once.
func (m *Mutator) RemoveItem(ctx context.Context, uow UnitOfWork, lineItemID string) (*LineItem, error) {
	li, err := m.lineItem(ctx, uow, lineItemID)
	if err != nil {
		return nil, err
	}
	addons, err := uow.LineItems().ListAddons(ctx, li.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list add-on assignments")
	}

	deltas, err := m.restoration(ctx, li.MenuItemID, li.Quantity, "remove item", li.OrderID, li.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range addons {
		addonDeltas, err := m.restoration(ctx, a.AddonID, a.Quantity, "remove item add-on", li.OrderID, li.ID)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, addonDeltas...)
	}

	if _, err := m.ledger.ApplyDeltas(ctx, uow.Stock(), uow.Audit(), deltas); err != nil {
		return nil, err
	}

	if err := uow.LineItems().DeleteAddonsByLineItem(ctx, li.ID); err != nil {
		return nil, errors.Wrap(err, "delete add-on assignments")
	}
	if err := uow.LineItems().Delete(ctx, li.ID); err != nil {
		return nil, errors.Wrap(err, "delete line item")
	}
	return li, nil
}

// AttachAddon debits the add-on's recipe, creates the assignment, and adds
// its total to the line item.
func (m *Mutator) AttachAddon(ctx context.Context, uow UnitOfWork, lineItemID string, sel AddonSelection) (*LineItem, *AddonAssignment, error) {
	if sel.Quantity <= 0 {
		return nil, nil, ErrInvalidQuantity
	}

	li, err := m.lineItem(ctx, uow, lineItemID)
	if err != nil {
		return nil, nil, err
	}

	existing, err := uow.LineItems().GetAddon(ctx, li.ID, sel.AddonID)
	switch {
	case err == nil && existing != nil:
		return nil, nil, errors.Wrapf(ErrAddonAlreadyAttached, "add-on %s", sel.AddonID)
	case err != nil && !isRefNotFound(err):
		return nil, nil, errors.Wrap(err, "check existing add-on assignment")
	}

	a, deltas, err := m.buildAddon(ctx, li.ID, li.OrderID, sel)
	if err != nil {
		return nil, nil, err
	}
	if _, err := m.ledger.ApplyDeltas(ctx, uow.Stock(), uow.Audit(), deltas); err != nil {
		var insErr *inventory.InsufficientStockError
		if errors.As(err, &insErr) {
			return nil, nil, errors.Wrapf(err, "attach add-on %s", sel.AddonID)
		}
		return nil, nil, err
	}

	if err := uow.LineItems().CreateAddon(ctx, a); err != nil {
		return nil, nil, errors.Wrap(err, "create add-on assignment")
	}

	total := li.TotalPrice.Add(a.TotalPrice).Round(2)
	if err := uow.LineItems().UpdateTotal(ctx, li.ID, total); err != nil {
		return nil, nil, errors.Wrap(err, "update line item total")
	}
	li.TotalPrice = total
	return li, a, nil
}

// DetachAddon credits the add-on's recipe, deletes the assignment, and
// subtracts its total from the line item.
func (m *Mutator) DetachAddon(ctx context.Context, uow UnitOfWork, lineItemID, addonID string) (*LineItem, error) {
	li, err := m.lineItem(ctx, uow, lineItemID)
	if err != nil {
		return nil, err
	}

	a, err := uow.LineItems().GetAddon(ctx, li.ID, addonID)
	if err != nil {
		return nil, err
	}

	deltas, err := m.restoration(ctx, a.AddonID, a.Quantity, "detach add-on", li.OrderID, li.ID)
	if err != nil {
		return nil, err
	}
	if _, err := m.ledger.ApplyDeltas(ctx, uow.Stock(), uow.Audit(), deltas); err != nil {
		return nil, err
	}

	if err := uow.LineItems().DeleteAddon(ctx, a.ID); err != nil {
		return nil, errors.Wrap(err, "delete add-on assignment")
	}

	total := li.TotalPrice.Sub(a.TotalPrice).Round(2)
	if err := uow.LineItems().UpdateTotal(ctx, li.ID, total); err != nil {
		return nil, errors.Wrap(err, "update line item total")
	}
	li.TotalPrice = total
	return li, nil
}

func (m *Mutator) menuItem(ctx context.Context, id string) (*catalog.MenuItem, error) {
	item, err := m.catalog.MenuItem(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &ReferenceNotFoundError{Kind: RefMenuItem, ID: id}
		}
		return nil, errors.Wrapf(err, "lookup menu item %s", id)
	}
	if !item.Active {
		return nil, &InactiveReferenceError{Kind: RefMenuItem, ID: id}
	}
	return item, nil
}

// lineItem fetches a line item; repositories report unknown ids as
// *ReferenceNotFoundError, which passes through untouched.
func (m *Mutator) lineItem(ctx context.Context, uow UnitOfWork, id string) (*LineItem, error) {
	return uow.LineItems().Get(ctx, id)
}

func isRefNotFound(err error) bool {
	var refErr *ReferenceNotFoundError
	return errors.As(err, &refErr)
}

// addonTotal sums the totals of the add-ons attached to a line item.
func (m *Mutator) addonTotal(ctx context.Context, uow UnitOfWork, lineItemID string) (decimal.Decimal, error) {
	addons, err := uow.LineItems().ListAddons(ctx, lineItemID)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "list add-ons")
	}
	total := decimal.Zero
	for _, a := range addons {
		total = total.Add(a.TotalPrice)
	}
	return total, nil
}

// buildAddon resolves the add-on's catalog entry and recipe and returns the
// assignment plus its consumption deltas, without persisting anything.
func (m *Mutator) buildAddon(ctx context.Context, lineItemID, orderID string, sel AddonSelection) (*AddonAssignment, []inventory.Delta, error) {
	addon, err := m.catalog.Addon(ctx, sel.AddonID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, nil, &ReferenceNotFoundError{Kind: RefAddon, ID: sel.AddonID}
		}
		return nil, nil, errors.Wrapf(err, "lookup add-on %s", sel.AddonID)
	}
	if !addon.Active {
		return nil, nil, &InactiveReferenceError{Kind: RefAddon, ID: sel.AddonID}
	}

	unitPrice := addon.Price
	if sel.UnitPrice != nil {
		unitPrice = *sel.UnitPrice
	}

	deltas, err := m.consumption(ctx, sel.AddonID, sel.Quantity, "attach add-on", orderID, lineItemID)
	if err != nil {
		return nil, nil, err
	}

	a := &AddonAssignment{
		ID:         m.newID(),
		LineItemID: lineItemID,
		AddonID:    sel.AddonID,
		Quantity:   sel.Quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(sel.Quantity))).Round(2),
	}
	return a, deltas, nil
}

func (m *Mutator) consumption(ctx context.Context, itemID string, quantity int, reason, orderID, lineItemID string) ([]inventory.Delta, error) {
	return m.deltas(ctx, itemID, quantity, reason, orderID, lineItemID, true)
}

func (m *Mutator) restoration(ctx context.Context, itemID string, quantity int, reason, orderID, lineItemID string) ([]inventory.Delta, error) {
	return m.deltas(ctx, itemID, quantity, reason, orderID, lineItemID, false)
}

func (m *Mutator) deltas(ctx context.Context, itemID string, quantity int, reason, orderID, lineItemID string, consume bool) ([]inventory.Delta, error) {
	reqs, err := m.recipes.Resolve(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	deltas := make([]inventory.Delta, 0, len(reqs))
	for _, r := range reqs {
		qty := r.Quantity
		if consume {
			qty = qty.Neg()
		}
		deltas = append(deltas, inventory.Delta{
			StockUnitID: r.StockUnitID,
			Quantity:    qty,
			Reason:      reason,
			OrderID:     orderID,
			LineItemID:  lineItemID,
		})
	}
	return deltas, nil
}

// reportFullRequirement rewrites the error's Required field from the missing
// increment to the full requirement of the new quantity.
func (m *Mutator) reportFullRequirement(ctx context.Context, insErr *inventory.InsufficientStockError, menuItemID string, quantity int) {
	reqs, err := m.recipes.Resolve(ctx, menuItemID, quantity)
	if err != nil {
		return
	}
	for _, r := range reqs {
		if r.StockUnitID == insErr.StockUnitID {
			insErr.Required = r.Quantity
			return
		}
	}
}
