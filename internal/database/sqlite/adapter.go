package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/Rana718/synthdb/internal/config"
	"github.com/Rana718/synthdb/internal/database/common"
)

const memoryDatabase = ":memory:"

type Adapter struct {
	db     *sql.DB
	qb     squirrel.StatementBuilderType
	driver string
}

// New returns an adapter for the given driver suffix. "modernc" selects the
// cgo-free modernc.org/sqlite driver; anything else uses mattn/go-sqlite3.
func New(driver string) *Adapter {
	return &Adapter{
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		driver: driver,
	}
}

func (s *Adapter) driverName() string {
	if s.driver == "modernc" {
		return "sqlite"
	}
	return "sqlite3"
}

// dsn switches foreign key enforcement on, which SQLite leaves off by default.
func (s *Adapter) dsn(database string) string {
	if s.driverName() == "sqlite" {
		return database + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	if database == memoryDatabase {
		return database + "?_foreign_keys=on"
	}
	return database + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

func (s *Adapter) Connect(ctx context.Context, cfg config.ConnectionConfig) error {
	database := strings.TrimSpace(cfg.Database)

	db, err := sql.Open(s.driverName(), s.dsn(database))
	if err != nil {
		return fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	if database == memoryDatabase {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	s.db = db
	return nil
}

func (s *Adapter) Attach(db *sql.DB) {
	s.db = db
}

func (s *Adapter) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Adapter) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("sqlite adapter is not connected")
	}
	return s.db.PingContext(ctx)
}

func (s *Adapter) DB() *sql.DB {
	return s.db
}

func (s *Adapter) QuoteIdentifier(name string) string {
	return common.QuoteDouble(name)
}

func (s *Adapter) PlaceholderFormat() squirrel.PlaceholderFormat {
	return squirrel.Question
}

// SupportsReturning is false: generated keys come from LastInsertId, which
// is the rowid and therefore the INTEGER PRIMARY KEY value.
func (s *Adapter) SupportsReturning() bool {
	return false
}
