package database

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"github.com/Rana718/synthdb/internal/config"
	"github.com/Rana718/synthdb/internal/types"
)

// Adapter is the per-dialect connection capability: it opens the pool,
// introspects metadata and knows the dialect's SQL quirks.
type Adapter interface {
	Connect(ctx context.Context, cfg config.ConnectionConfig) error
	// Attach uses an already opened pool instead of dialing.
	Attach(db *sql.DB)
	Close() error
	Ping(ctx context.Context) error
	DB() *sql.DB

	// Schema operations
	GetCurrentSchema(ctx context.Context) ([]types.TableSchema, error)

	// SQL generation
	QuoteIdentifier(name string) string
	PlaceholderFormat() squirrel.PlaceholderFormat
	SupportsReturning() bool
}

// DatabaseConnection is the subset of *sql.DB, *sql.Conn and *sql.Tx the
// insertion engine executes against.
type DatabaseConnection interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
