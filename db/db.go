package db

import (
	"context"
	"embed"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
)

type SortByDir string

const (
	SortByDirAsc  SortByDir = "asc"
	SortByDirDesc SortByDir = "desc"
)

func (s SortByDir) IsValid() bool {
	switch s {
	case SortByDirAsc, SortByDirDesc:
		return true
	default:
		return false
	}
}

// Conn is satisfied by pgxpool.Pool and pgx.Tx, so query functions work
// inside and outside a transaction.
type Conn interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BeginFunc runs fn inside a transaction, rolling back on error.
func BeginFunc(ctx context.Context, conn Conn, fn func(tx pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return terror.Error(err)
	}
	defer tx.Rollback(ctx)

	err = fn(tx)
	if err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}

//go:embed migrations
var migrations embed.FS

// MigrateUp applies all pending migrations from the embedded migration set.
func MigrateUp(connString string) error {
	source, err := httpfs.New(http.FS(migrations), "migrations")
	if err != nil {
		return terror.Error(err)
	}
	m, err := migrate.NewWithSourceInstance("embedded", source, connString)
	if err != nil {
		return terror.Error(err, "could not initialise migrations")
	}
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return terror.Error(err, "migration failed")
	}
	return nil
}

// IsSchemaDirty reports whether the last migration left the schema dirty.
func IsSchemaDirty(ctx context.Context, conn Conn, count *int) error {
	q := `SELECT COUNT(*) FROM schema_migrations WHERE dirty IS TRUE`
	err := conn.QueryRow(ctx, q).Scan(count)
	if err != nil {
		return terror.Error(err)
	}
	return nil
}
