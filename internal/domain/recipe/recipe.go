// Package recipe maps sellable items to the raw-material stock they consume.
// A menu item or add-on declares zero or more links, each naming a stock unit
// and how much of it one sold unit consumes.
package recipe

import (
	"context"

	"github.com/shopspring/decimal"
)

// Link declares that one unit of the referenced item consumes
// QuantityPerUnit of the given stock unit.
type Link struct {
	ItemID          string
	StockUnitID     string
	QuantityPerUnit decimal.Decimal
}

// Source provides recipe links for an item. Items without links return an
// empty slice and no error.
type Source interface {
	LinksFor(ctx context.Context, itemID string) ([]Link, error)
}

// Requirement is the aggregated stock consumption for one stock unit.
type Requirement struct {
	StockUnitID string
	Quantity    decimal.Decimal
}
