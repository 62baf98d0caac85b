// Command seed-db loads the catalog (menu items, add-ons, recipe links) and
// starting stock levels into the database. Input files are JSON, optionally
// gzip-compressed (.gz suffix); exports from the back-office system arrive
// compressed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/comanda-pos/comanda/internal/storage/postgres"
)

type recipeLinkJSON struct {
	StockUnitID     string          `json:"stockUnitId"`
	QuantityPerUnit decimal.Decimal `json:"quantityPerUnit"`
}

type menuItemJSON struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Price    decimal.Decimal  `json:"price"`
	Category string           `json:"category"`
	Active   *bool            `json:"active"`
	Recipe   []recipeLinkJSON `json:"recipe"`
}

type addonJSON struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Price  decimal.Decimal  `json:"price"`
	Active *bool            `json:"active"`
	Recipe []recipeLinkJSON `json:"recipe"`
}

type catalogJSON struct {
	MenuItems []menuItemJSON `json:"menuItems"`
	Addons    []addonJSON    `json:"addons"`
}

type stockUnitJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
		stockFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file (.json or .json.gz)")
	flag.StringVar(&stockFile, "stock-file", "db/seed/stock.json", "path to stock JSON file (.json or .json.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, stockFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, stockFile string) error {
	// Parse both files concurrently before touching the database, so a
	// malformed file aborts the run without partial writes from this pass.
	var (
		cat   catalogJSON
		stock []stockUnitJSON
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(readSeedFile(gctx, catalogFile, &cat), "read catalog file")
	})
	g.Go(func() error {
		return errors.Wrap(readSeedFile(gctx, stockFile, &stock), "read stock file")
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seeder := postgres.NewSeeder(pool)

	if err := seedStock(ctx, seeder, stock); err != nil {
		return errors.Wrap(err, "seed stock units")
	}
	if err := seedCatalog(ctx, seeder, cat); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	return nil
}

// readSeedFile decodes a JSON file into v, transparently decompressing
// gzip-suffixed files.
func readSeedFile(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}

func seedStock(ctx context.Context, seeder *postgres.Seeder, units []stockUnitJSON) error {
	slog.Info("upserting stock units", slog.Int("count", len(units)))

	for _, u := range units {
		if err := seeder.UpsertStockUnit(ctx, u.ID, u.Name, u.Quantity, u.Unit); err != nil {
			return errors.Wrapf(err, "upsert stock unit %s", u.ID)
		}
		slog.Info("upserted stock unit", slog.String("id", u.ID), slog.String("quantity", u.Quantity.String()))
	}
	return nil
}

func seedCatalog(ctx context.Context, seeder *postgres.Seeder, cat catalogJSON) error {
	slog.Info("upserting menu items", slog.Int("count", len(cat.MenuItems)))

	for _, item := range cat.MenuItems {
		if err := seeder.UpsertMenuItem(ctx, item.ID, item.Name, item.Price, item.Category, activeDefault(item.Active)); err != nil {
			return errors.Wrapf(err, "upsert menu item %s", item.ID)
		}
		if err := replaceRecipe(ctx, seeder, item.ID, item.Recipe); err != nil {
			return err
		}
		slog.Info("upserted menu item", slog.String("id", item.ID), slog.String("name", item.Name))
	}

	slog.Info("upserting add-ons", slog.Int("count", len(cat.Addons)))

	for _, a := range cat.Addons {
		if err := seeder.UpsertAddon(ctx, a.ID, a.Name, a.Price, activeDefault(a.Active)); err != nil {
			return errors.Wrapf(err, "upsert add-on %s", a.ID)
		}
		if err := replaceRecipe(ctx, seeder, a.ID, a.Recipe); err != nil {
			return err
		}
		slog.Info("upserted add-on", slog.String("id", a.ID), slog.String("name", a.Name))
	}

	return nil
}

func replaceRecipe(ctx context.Context, seeder *postgres.Seeder, itemID string, links []recipeLinkJSON) error {
	if err := seeder.DeleteRecipeLinks(ctx, itemID); err != nil {
		return errors.Wrapf(err, "clear recipe for %s", itemID)
	}
	for _, l := range links {
		if err := seeder.InsertRecipeLink(ctx, itemID, l.StockUnitID, l.QuantityPerUnit); err != nil {
			return errors.Wrapf(err, "insert recipe link %s -> %s", itemID, l.StockUnitID)
		}
	}
	return nil
}

// activeDefault treats a missing "active" field as active.
func activeDefault(v *bool) bool {
	return v == nil || *v
}
