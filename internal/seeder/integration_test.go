//go:build integration

package seeder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/config"
	"github.com/Rana718/synthdb/internal/database"
	"github.com/Rana718/synthdb/internal/schema"
	"github.com/Rana718/synthdb/internal/types"
)

var pgDDL = []string{
	`CREATE TABLE customers (id SERIAL PRIMARY KEY, name TEXT NOT NULL, email TEXT UNIQUE)`,
	`CREATE TABLE orders (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		total NUMERIC(10,2) CHECK (total >= 0),
		meta JSONB
	)`,
	`CREATE TABLE employees (code VARCHAR(10) PRIMARY KEY, name TEXT NOT NULL, manager_code VARCHAR(10) REFERENCES employees(code))`,
}

func startPostgres(t *testing.T) config.ConnectionConfig {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("shop"),
		postgres.WithUsername("synth"),
		postgres.WithPassword("synth"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.ConnectionConfig{
		Name:     "shop",
		Dialect:  "postgresql",
		Username: "synth",
		Password: "synth",
		Host:     host,
		Port:     port.Int(),
		Database: "shop",
	}
}

func TestPostgresIntegration(t *testing.T) {
	cfg := startPostgres(t)
	// lib/pq requires TLS unless told otherwise; pgx reads the same variable.
	t.Setenv("PGSSLMODE", "disable")

	for _, dialect := range []string{"postgresql", "postgresql+pq"} {
		t.Run(dialect, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			registry := database.NewRegistry()
			defer registry.CloseAll()

			cfg.Dialect = dialect
			h, err := registry.AddConnection(ctx, cfg)
			require.NoError(t, err)

			_, err = h.DB().ExecContext(ctx, `DROP TABLE IF EXISTS orders, employees, customers`)
			require.NoError(t, err)
			for _, stmt := range pgDDL {
				_, err := h.DB().ExecContext(ctx, stmt)
				require.NoError(t, err)
			}

			extractor := schema.NewExtractor(registry)
			desc, err := extractor.ExtractSchema(ctx, "shop")
			require.NoError(t, err)
			assert.Equal(t, []string{"customers", "employees", "orders"}, desc.TableNames())

			orders, _ := desc.Table("orders")
			id, _ := orders.Column("id")
			assert.True(t, id.IsAutoGenerated)
			assert.Equal(t, []types.ForeignKey{{Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"}}, orders.ForeignKeys)

			customers, _ := desc.Table("customers")
			cid, _ := customers.Column("id")
			assert.True(t, cid.IsAutoGenerated)

			result, err := types.ParseGenerationResult([]byte(`{
				"customers": {"attributes": ["name", "email"], "values": [["Ana", "ana@example.com"], ["Bruno", null]]},
				"orders": {"attributes": ["customer_id", "total", "meta"], "values": [["$ref:customers:2", 10.5, {"gift": true}], ["$ref:customers:1", 3, null]]},
				"employees": {"attributes": ["code", "name", "manager_code"], "values": [["E1", "Carla", null], ["E2", "Diego", "$ref:employees:1"]]}
			}`))
			require.NoError(t, err)

			engine := NewEngine(registry, extractor)
			outcome, err := engine.Insert(ctx, "shop", result)
			require.NoError(t, err)
			assert.Equal(t, 6, outcome.Total())

			var name string
			require.NoError(t, h.DB().QueryRowContext(ctx,
				`SELECT c.name FROM orders o JOIN customers c ON c.id = o.customer_id WHERE o.total = 10.5`).Scan(&name))
			assert.Equal(t, "Bruno", name)

			var manager string
			require.NoError(t, h.DB().QueryRowContext(ctx, `SELECT manager_code FROM employees WHERE code = 'E2'`).Scan(&manager))
			assert.Equal(t, "E1", manager)

			bad, err := types.ParseGenerationResult([]byte(`{
				"customers": {"attributes": ["name"], "values": [["Elisa"]]},
				"orders": {"attributes": ["customer_id", "total"], "values": [["$ref:customers:1", -1]]}
			}`))
			require.NoError(t, err)

			_, err = engine.Insert(ctx, "shop", bad)
			var insertErr *apperrors.InsertFailedError
			require.ErrorAs(t, err, &insertErr)
			assert.Equal(t, "orders", insertErr.Table)

			var n int
			require.NoError(t, h.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n))
			assert.Equal(t, 2, n)
		})
	}
}
