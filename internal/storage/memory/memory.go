// Package memory is an in-memory implementation of the order core's storage
// interfaces. A store-wide mutex plus snapshot rollback gives the same
// all-or-nothing, serialized semantics as the Postgres store. It backs unit
// tests and the server's dev mode.
//
// Catalog and recipe data are read-only after seeding; seed before serving.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/domain/catalog"
	"github.com/comanda-pos/comanda/internal/domain/inventory"
	"github.com/comanda-pos/comanda/internal/domain/order"
	"github.com/comanda-pos/comanda/internal/domain/recipe"
)

// Store holds all state behind one mutex. It implements order.TxRunner,
// catalog.Source, and recipe.Source.
type Store struct {
	mu    sync.Mutex
	state state

	menu      map[string]catalog.MenuItem
	addonsCat map[string]catalog.Addon
	recipes   map[string][]recipe.Link
}

// state is the transactional part of the store, deep-copied on every unit of
// work so a failed mutation restores the previous snapshot.
type state struct {
	orders    map[string]order.Order
	lineItems map[string]order.LineItem
	addons    map[string]order.AddonAssignment
	stock     map[string]inventory.StockUnit
	audit     []inventory.AuditEntry
	seq       map[string]int
	nextSeq   int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		state: state{
			orders:    make(map[string]order.Order),
			lineItems: make(map[string]order.LineItem),
			addons:    make(map[string]order.AddonAssignment),
			stock:     make(map[string]inventory.StockUnit),
			seq:       make(map[string]int),
		},
		menu:      make(map[string]catalog.MenuItem),
		addonsCat: make(map[string]catalog.Addon),
		recipes:   make(map[string][]recipe.Link),
	}
}

func (s *state) clone() state {
	c := state{
		orders:    make(map[string]order.Order, len(s.orders)),
		lineItems: make(map[string]order.LineItem, len(s.lineItems)),
		addons:    make(map[string]order.AddonAssignment, len(s.addons)),
		stock:     make(map[string]inventory.StockUnit, len(s.stock)),
		audit:     append([]inventory.AuditEntry(nil), s.audit...),
		seq:       make(map[string]int, len(s.seq)),
		nextSeq:   s.nextSeq,
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.lineItems {
		c.lineItems[k] = v
	}
	for k, v := range s.addons {
		c.addons[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

// WithinTx serializes units of work behind the store mutex and restores the
// pre-transaction snapshot when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, uow order.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &unitOfWork{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

type unitOfWork struct {
	s *Store
}

func (u *unitOfWork) Orders() order.Repository            { return (*orderRepo)(u) }
func (u *unitOfWork) LineItems() order.LineItemRepository { return (*lineItemRepo)(u) }
func (u *unitOfWork) Stock() inventory.Repository         { return (*stockRepo)(u) }
func (u *unitOfWork) Audit() inventory.AuditLog           { return (*auditLog)(u) }

// --- order.Repository ---

type orderRepo unitOfWork

func (r *orderRepo) Create(_ context.Context, o *order.Order) error {
	if _, ok := r.s.state.orders[o.ID]; ok {
		return errors.Errorf("order %s already exists", o.ID)
	}
	r.s.state.orders[o.ID] = *o
	return nil
}

func (r *orderRepo) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.s.state.orders[id]
	if !ok {
		return nil, &order.ReferenceNotFoundError{Kind: order.RefOrder, ID: id}
	}
	return &o, nil
}

// GetForUpdate is identical to Get: the store mutex already serializes whole
// units of work.
func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.Get(ctx, id)
}

func (r *orderRepo) SetTotals(_ context.Context, id string, subtotal, total decimal.Decimal) error {
	o, ok := r.s.state.orders[id]
	if !ok {
		return &order.ReferenceNotFoundError{Kind: order.RefOrder, ID: id}
	}
	o.Subtotal = subtotal
	o.Total = total
	r.s.state.orders[id] = o
	return nil
}

func (r *orderRepo) SetStatus(_ context.Context, id string, status order.Status) error {
	o, ok := r.s.state.orders[id]
	if !ok {
		return &order.ReferenceNotFoundError{Kind: order.RefOrder, ID: id}
	}
	o.Status = status
	r.s.state.orders[id] = o
	return nil
}

// --- order.LineItemRepository ---

type lineItemRepo unitOfWork

func (r *lineItemRepo) Create(_ context.Context, li *order.LineItem) error {
	r.s.state.lineItems[li.ID] = *li
	r.s.state.nextSeq++
	r.s.state.seq[li.ID] = r.s.state.nextSeq
	return nil
}

func (r *lineItemRepo) Get(_ context.Context, id string) (*order.LineItem, error) {
	li, ok := r.s.state.lineItems[id]
	if !ok {
		return nil, &order.ReferenceNotFoundError{Kind: order.RefLineItem, ID: id}
	}
	return &li, nil
}

func (r *lineItemRepo) ListByOrder(_ context.Context, orderID string) ([]order.LineItem, error) {
	var items []order.LineItem
	for _, li := range r.s.state.lineItems {
		if li.OrderID == orderID {
			items = append(items, li)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return r.s.state.seq[items[i].ID] < r.s.state.seq[items[j].ID]
	})
	return items, nil
}

func (r *lineItemRepo) UpdateQuantity(_ context.Context, id string, quantity int, totalPrice decimal.Decimal) error {
	li, ok := r.s.state.lineItems[id]
	if !ok {
		return &order.ReferenceNotFoundError{Kind: order.RefLineItem, ID: id}
	}
	li.Quantity = quantity
	li.TotalPrice = totalPrice
	r.s.state.lineItems[id] = li
	return nil
}

func (r *lineItemRepo) UpdateTotal(_ context.Context, id string, totalPrice decimal.Decimal) error {
	li, ok := r.s.state.lineItems[id]
	if !ok {
		return &order.ReferenceNotFoundError{Kind: order.RefLineItem, ID: id}
	}
	li.TotalPrice = totalPrice
	r.s.state.lineItems[id] = li
	return nil
}

func (r *lineItemRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.s.state.lineItems[id]; !ok {
		return &order.ReferenceNotFoundError{Kind: order.RefLineItem, ID: id}
	}
	delete(r.s.state.lineItems, id)
	delete(r.s.state.seq, id)
	return nil
}

func (r *lineItemRepo) CreateAddon(_ context.Context, a *order.AddonAssignment) error {
	r.s.state.addons[a.ID] = *a
	r.s.state.nextSeq++
	r.s.state.seq[a.ID] = r.s.state.nextSeq
	return nil
}

func (r *lineItemRepo) GetAddon(_ context.Context, lineItemID, addonID string) (*order.AddonAssignment, error) {
	for _, a := range r.s.state.addons {
		if a.LineItemID == lineItemID && a.AddonID == addonID {
			return &a, nil
		}
	}
	return nil, &order.ReferenceNotFoundError{Kind: order.RefAddon, ID: addonID}
}

func (r *lineItemRepo) ListAddons(_ context.Context, lineItemID string) ([]order.AddonAssignment, error) {
	var out []order.AddonAssignment
	for _, a := range r.s.state.addons {
		if a.LineItemID == lineItemID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.state.seq[out[i].ID] < r.s.state.seq[out[j].ID]
	})
	return out, nil
}

func (r *lineItemRepo) DeleteAddon(_ context.Context, id string) error {
	if _, ok := r.s.state.addons[id]; !ok {
		return &order.ReferenceNotFoundError{Kind: order.RefAddon, ID: id}
	}
	delete(r.s.state.addons, id)
	delete(r.s.state.seq, id)
	return nil
}

func (r *lineItemRepo) DeleteAddonsByLineItem(_ context.Context, lineItemID string) error {
	for id, a := range r.s.state.addons {
		if a.LineItemID == lineItemID {
			delete(r.s.state.addons, id)
			delete(r.s.state.seq, id)
		}
	}
	return nil
}

// --- inventory.Repository ---

type stockRepo unitOfWork

func (r *stockRepo) GetForUpdate(_ context.Context, ids []string) ([]inventory.StockUnit, error) {
	out := make([]inventory.StockUnit, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := r.s.state.stock[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *stockRepo) SetQuantity(_ context.Context, id string, quantity decimal.Decimal) error {
	u, ok := r.s.state.stock[id]
	if !ok {
		return errors.Errorf("stock unit %s not found", id)
	}
	u.Quantity = quantity
	r.s.state.stock[id] = u
	return nil
}

func (r *stockRepo) List(_ context.Context) ([]inventory.StockUnit, error) {
	out := make([]inventory.StockUnit, 0, len(r.s.state.stock))
	for _, u := range r.s.state.stock {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- inventory.AuditLog ---

type auditLog unitOfWork

func (l *auditLog) Append(_ context.Context, entry inventory.AuditEntry) error {
	l.s.state.audit = append(l.s.state.audit, entry)
	return nil
}

// --- catalog.Source (read-only, no locking; see package doc) ---

func (s *Store) MenuItem(_ context.Context, id string) (*catalog.MenuItem, error) {
	item, ok := s.menu[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &item, nil
}

func (s *Store) Addon(_ context.Context, id string) (*catalog.Addon, error) {
	a, ok := s.addonsCat[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListMenuItems(_ context.Context) ([]catalog.MenuItem, error) {
	out := make([]catalog.MenuItem, 0, len(s.menu))
	for _, item := range s.menu {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListAddons(_ context.Context) ([]catalog.Addon, error) {
	out := make([]catalog.Addon, 0, len(s.addonsCat))
	for _, a := range s.addonsCat {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- recipe.Source ---

func (s *Store) LinksFor(_ context.Context, itemID string) ([]recipe.Link, error) {
	return s.recipes[itemID], nil
}

// ListStock returns current stock levels outside any transaction.
func (s *Store) ListStock(_ context.Context) ([]inventory.StockUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]inventory.StockUnit, 0, len(s.state.stock))
	for _, u := range s.state.stock {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- seeding and test accessors ---

// SeedMenuItem registers a menu item in the catalog.
func (s *Store) SeedMenuItem(item catalog.MenuItem) {
	s.menu[item.ID] = item
}

// SeedAddon registers an add-on in the catalog.
func (s *Store) SeedAddon(a catalog.Addon) {
	s.addonsCat[a.ID] = a
}

// SeedRecipeLink declares a consumption link for a menu item or add-on.
func (s *Store) SeedRecipeLink(l recipe.Link) {
	s.recipes[l.ItemID] = append(s.recipes[l.ItemID], l)
}

// SeedStockUnit registers a stock unit with its starting quantity.
func (s *Store) SeedStockUnit(u inventory.StockUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.stock[u.ID] = u
}

// StockQuantity returns the current quantity of a stock unit.
func (s *Store) StockQuantity(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.stock[id].Quantity
}

// AuditEntries returns a copy of the audit trail in append order.
func (s *Store) AuditEntries() []inventory.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inventory.AuditEntry(nil), s.state.audit...)
}
