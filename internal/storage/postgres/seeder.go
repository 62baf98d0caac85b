package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Seeder performs catalog and stock upserts for the seed-db command. It is
// not part of the order-entry path and runs outside any unit of work.
type Seeder struct {
	pool *pgxpool.Pool
}

func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

func (s *Seeder) UpsertMenuItem(ctx context.Context, id, name string, price decimal.Decimal, category string, active bool) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO menu_items (id, name, price, category, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = $2, price = $3, category = $4, active = $5`,
		id, name, price, category, active,
	)
	return errors.Wrap(err, "upsert menu item")
}

func (s *Seeder) UpsertAddon(ctx context.Context, id, name string, price decimal.Decimal, active bool) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO addons (id, name, price, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = $2, price = $3, active = $4`,
		id, name, price, active,
	)
	return errors.Wrap(err, "upsert addon")
}

// UpsertStockUnit sets name and unit on conflict but leaves the live quantity
// alone, so re-running the seed does not clobber inventory movements.
func (s *Seeder) UpsertStockUnit(ctx context.Context, id, name string, quantity decimal.Decimal, unit string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO stock_units (id, name, quantity, unit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = $2, unit = $4`,
		id, name, quantity, unit,
	)
	return errors.Wrap(err, "upsert stock unit")
}

func (s *Seeder) DeleteRecipeLinks(ctx context.Context, itemID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM recipe_links WHERE item_id = $1`, itemID)
	return errors.Wrap(err, "delete recipe links")
}

func (s *Seeder) InsertRecipeLink(ctx context.Context, itemID, stockUnitID string, qty decimal.Decimal) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO recipe_links (item_id, stock_unit_id, quantity_per_unit)
		VALUES ($1, $2, $3)`,
		itemID, stockUnitID, qty,
	)
	return errors.Wrap(err, "insert recipe link")
}
