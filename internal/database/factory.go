package database

import (
	"fmt"

	"github.com/Rana718/synthdb/internal/config"
	"github.com/Rana718/synthdb/internal/database/mysql"
	"github.com/Rana718/synthdb/internal/database/postgres"
	"github.com/Rana718/synthdb/internal/database/sqlite"
)

func NewAdapter(dialect config.Dialect) (Adapter, error) {
	switch dialect.Base {
	case config.PostgreSQL:
		return postgres.New(dialect.Driver), nil
	case config.MySQL:
		return mysql.New(), nil
	case config.SQLite:
		return sqlite.New(dialect.Driver), nil
	default:
		return nil, fmt.Errorf("no adapter for dialect %q", dialect.String())
	}
}
