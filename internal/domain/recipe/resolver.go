package recipe

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Resolver turns (item, quantity) pairs into aggregated stock requirements.
type Resolver struct {
	source Source
}

// NewResolver creates a Resolver backed by the given Source.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve loads the item's recipe links and returns one Requirement per
// distinct stock unit, scaled by quantity. Items with no links resolve to an
// empty slice.
func (r *Resolver) Resolve(ctx context.Context, itemID string, quantity int) ([]Requirement, error) {
	links, err := r.source.LinksFor(ctx, itemID)
	if err != nil {
		return nil, errors.Wrapf(err, "load recipe links for %s", itemID)
	}
	return Aggregate(links, decimal.NewFromInt(int64(quantity))), nil
}

// Aggregate combines links targeting the same stock unit into a single
// requirement so the ledger receives one delta per stock unit. An item that
// consumes the same raw material through two different links must not be
// rejected twice against the same remaining quantity.
//
// The result is sorted by stock-unit id, which gives the ledger a
// deterministic application order and a stable lock order in the database.
func Aggregate(links []Link, quantity decimal.Decimal) []Requirement {
	if len(links) == 0 {
		return nil
	}

	byUnit := make(map[string]decimal.Decimal, len(links))
	for _, l := range links {
		byUnit[l.StockUnitID] = byUnit[l.StockUnitID].Add(l.QuantityPerUnit.Mul(quantity))
	}

	reqs := make([]Requirement, 0, len(byUnit))
	for id, qty := range byUnit {
		reqs = append(reqs, Requirement{StockUnitID: id, Quantity: qty})
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].StockUnitID < reqs[j].StockUnitID })
	return reqs
}
