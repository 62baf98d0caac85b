// Package catalog exposes the read-only menu catalog consumed by the order
// core: menu items and add-ons with their current prices and active flags.
// The catalog is an external collaborator; this core never mutates it.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested menu item or add-on does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// MenuItem is a sellable catalog entry.
type MenuItem struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	Active   bool
}

// Addon is an optional extra that can be attached to a line item.
type Addon struct {
	ID     string
	Name   string
	Price  decimal.Decimal
	Active bool
}

// Source provides catalog lookups. Implementations return ErrNotFound
// (possibly wrapped) for unknown identifiers.
type Source interface {
	MenuItem(ctx context.Context, id string) (*MenuItem, error)
	Addon(ctx context.Context, id string) (*Addon, error)
	ListMenuItems(ctx context.Context) ([]MenuItem, error)
	ListAddons(ctx context.Context) ([]Addon, error)
}
