package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"

	"github.com/Rana718/synthdb/internal/config"
)

type Adapter struct {
	db *sql.DB
	qb squirrel.StatementBuilderType
}

// New returns a MySQL adapter. Every driver suffix ("mysql+pymysql",
// "mysql+mysqldb", ...) maps onto go-sql-driver/mysql.
func New() *Adapter {
	return &Adapter{
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

func formatDSN(cfg config.ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

func (m *Adapter) Connect(ctx context.Context, cfg config.ConnectionConfig) error {
	db, err := sql.Open("mysql", formatDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	m.db = db
	return nil
}

func (m *Adapter) Attach(db *sql.DB) {
	m.db = db
}

func (m *Adapter) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *Adapter) Ping(ctx context.Context) error {
	if m.db == nil {
		return fmt.Errorf("mysql adapter is not connected")
	}
	return m.db.PingContext(ctx)
}

func (m *Adapter) DB() *sql.DB {
	return m.db
}

func (m *Adapter) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m *Adapter) PlaceholderFormat() squirrel.PlaceholderFormat {
	return squirrel.Question
}

func (m *Adapter) SupportsReturning() bool {
	return false
}
