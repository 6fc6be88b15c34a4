package config

import (
	"fmt"
	"strings"
)

// Base dialect names. A configured dialect may carry a driver suffix,
// e.g. "mysql+pymysql" or "sqlite+modernc".
const (
	SQLite     = "sqlite"
	MySQL      = "mysql"
	PostgreSQL = "postgresql"
)

// DefaultDialects is the allow-list used when none is configured.
var DefaultDialects = []string{SQLite, MySQL, PostgreSQL}

var dialectAliases = map[string]string{
	"sqlite3":  SQLite,
	"postgres": PostgreSQL,
}

// Dialect is a parsed "base[+driver]" dialect string.
type Dialect struct {
	Base   string
	Driver string
}

func ParseDialect(raw string) (Dialect, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return Dialect{}, fmt.Errorf("dialect cannot be empty")
	}

	base, driver, _ := strings.Cut(raw, "+")
	if base == "" {
		return Dialect{}, fmt.Errorf("dialect %q has no base name", raw)
	}
	if alias, ok := dialectAliases[base]; ok {
		base = alias
	}
	return Dialect{Base: base, Driver: driver}, nil
}

func (d Dialect) String() string {
	if d.Driver == "" {
		return d.Base
	}
	return d.Base + "+" + d.Driver
}

func (d Dialect) IsSQLite() bool {
	return d.Base == SQLite
}

// Allowed reports whether the base dialect is present in allowed.
// An empty allow-list falls back to DefaultDialects.
func (d Dialect) Allowed(allowed []string) bool {
	if len(allowed) == 0 {
		allowed = DefaultDialects
	}
	for _, a := range allowed {
		if parsed, err := ParseDialect(a); err == nil && parsed.Base == d.Base {
			return true
		}
	}
	return false
}
