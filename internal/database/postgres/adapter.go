package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/Rana718/synthdb/internal/config"
)

type Adapter struct {
	db     *sql.DB
	qb     squirrel.StatementBuilderType
	driver string
}

// New returns an adapter for the given driver suffix. "pq" selects lib/pq;
// anything else goes through pgx.
func New(driver string) *Adapter {
	return &Adapter{
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		driver: driver,
	}
}

func connectionString(cfg config.ConnectionConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	return u.String()
}

func (p *Adapter) Connect(ctx context.Context, cfg config.ConnectionConfig) error {
	dsn := connectionString(cfg)

	var db *sql.DB
	if p.driver == "pq" {
		opened, err := sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to open postgres connection: %w", err)
		}
		db = opened
	} else {
		connConfig, err := pgx.ParseConfig(dsn)
		if err != nil {
			return fmt.Errorf("failed to parse connection URL: %w", err)
		}
		connConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
		db = stdlib.OpenDB(*connConfig)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	p.db = db
	return nil
}

func (p *Adapter) Attach(db *sql.DB) {
	p.db = db
}

func (p *Adapter) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *Adapter) Ping(ctx context.Context) error {
	if p.db == nil {
		return fmt.Errorf("postgres adapter is not connected")
	}
	return p.db.PingContext(ctx)
}

func (p *Adapter) DB() *sql.DB {
	return p.db
}

func (p *Adapter) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (p *Adapter) PlaceholderFormat() squirrel.PlaceholderFormat {
	return squirrel.Dollar
}

func (p *Adapter) SupportsReturning() bool {
	return true
}
