// Package postgres implements the order core's storage interfaces on
// PostgreSQL via pgx. Units of work are serializable transactions; stock and
// order rows are locked FOR UPDATE so the read-check-write sequences in the
// ledger and coordinator cannot race.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/db"
	"github.com/comanda-pos/comanda/internal/domain/inventory"
	"github.com/comanda-pos/comanda/internal/domain/order"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing database config")
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating connection pool")
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "running migrations")
	}
	return nil
}

var _ order.TxRunner = (*Store)(nil)

// Store runs units of work as serializable Postgres transactions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx opens a serializable transaction, runs fn with a unit of work
// bound to it, and commits only when fn returns nil. Serialization conflicts
// surface as raw *pgconn.PgError; the coordinator owns their translation.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, uow order.UnitOfWork) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &unitOfWork{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// ListStock reads current stock levels outside any transaction, for the
// read-only stock endpoint.
func (s *Store) ListStock(ctx context.Context) ([]inventory.StockUnit, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, quantity, unit FROM stock_units ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list stock units")
	}
	defer rows.Close()

	var units []inventory.StockUnit
	for rows.Next() {
		var u inventory.StockUnit
		if err := rows.Scan(&u.ID, &u.Name, &u.Quantity, &u.Unit); err != nil {
			return nil, errors.Wrap(err, "scan stock unit")
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

type unitOfWork struct {
	tx pgx.Tx
}

func (u *unitOfWork) Orders() order.Repository            { return &orderRepo{tx: u.tx} }
func (u *unitOfWork) LineItems() order.LineItemRepository { return &lineItemRepo{tx: u.tx} }
func (u *unitOfWork) Stock() inventory.Repository         { return &stockRepo{tx: u.tx} }
func (u *unitOfWork) Audit() inventory.AuditLog           { return &auditLog{tx: u.tx} }
