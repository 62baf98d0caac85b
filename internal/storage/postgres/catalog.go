package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/domain/catalog"
	"github.com/comanda-pos/comanda/internal/domain/recipe"
)

var _ catalog.Source = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Source backed by PostgreSQL. Catalog
// reads are plain pool queries; the catalog is read-only from the order
// core's perspective and takes no part in mutation transactions.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) MenuItem(ctx context.Context, id string) (*catalog.MenuItem, error) {
	var item catalog.MenuItem
	err := r.pool.QueryRow(ctx, `SELECT id, name, price, category, active FROM menu_items WHERE id = $1`, id).
		Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "select menu item %s", id)
	}
	return &item, nil
}

func (r *CatalogRepository) Addon(ctx context.Context, id string) (*catalog.Addon, error) {
	var a catalog.Addon
	err := r.pool.QueryRow(ctx, `SELECT id, name, price, active FROM addons WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Price, &a.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "select add-on %s", id)
	}
	return &a, nil
}

func (r *CatalogRepository) ListMenuItems(ctx context.Context) ([]catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price, category, active FROM menu_items ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list menu items")
	}
	defer rows.Close()

	var items []catalog.MenuItem
	for rows.Next() {
		var item catalog.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.Active); err != nil {
			return nil, errors.Wrap(err, "scan menu item")
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *CatalogRepository) ListAddons(ctx context.Context) ([]catalog.Addon, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price, active FROM addons ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list add-ons")
	}
	defer rows.Close()

	var addons []catalog.Addon
	for rows.Next() {
		var a catalog.Addon
		if err := rows.Scan(&a.ID, &a.Name, &a.Price, &a.Active); err != nil {
			return nil, errors.Wrap(err, "scan add-on")
		}
		addons = append(addons, a)
	}
	return addons, rows.Err()
}

var _ recipe.Source = (*RecipeRepository)(nil)

// RecipeRepository implements recipe.Source backed by PostgreSQL.
type RecipeRepository struct {
	pool *pgxpool.Pool
}

// NewRecipeRepository returns a RecipeRepository that uses the given pool.
func NewRecipeRepository(pool *pgxpool.Pool) *RecipeRepository {
	return &RecipeRepository{pool: pool}
}

func (r *RecipeRepository) LinksFor(ctx context.Context, itemID string) ([]recipe.Link, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_id, stock_unit_id, quantity_per_unit
		FROM recipe_links WHERE item_id = $1 ORDER BY stock_unit_id`, itemID)
	if err != nil {
		return nil, errors.Wrapf(err, "list recipe links of %s", itemID)
	}
	defer rows.Close()

	var links []recipe.Link
	for rows.Next() {
		var l recipe.Link
		if err := rows.Scan(&l.ItemID, &l.StockUnitID, &l.QuantityPerUnit); err != nil {
			return nil, errors.Wrap(err, "scan recipe link")
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
