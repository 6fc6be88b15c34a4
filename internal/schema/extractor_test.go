package schema

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/config"
	"github.com/Rana718/synthdb/internal/database"
	"github.com/Rana718/synthdb/internal/types"
)

func newShopRegistry(t *testing.T, names ...string) *database.Registry {
	t.Helper()

	r := database.NewRegistry()
	t.Cleanup(func() { r.CloseAll() })

	for _, name := range names {
		h, err := r.AddConnection(context.Background(), config.ConnectionConfig{Name: name, Dialect: "sqlite", Database: ":memory:"})
		require.NoError(t, err)
		for _, stmt := range []string{
			`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER NOT NULL REFERENCES customers(id), total REAL)`,
			`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		} {
			_, err := h.DB().Exec(stmt)
			require.NoError(t, err)
		}
	}
	return r
}

func TestExtractSchema(t *testing.T) {
	r := newShopRegistry(t, "shop")
	e := NewExtractor(r, WithTimeout(5*time.Second))

	desc, err := e.ExtractSchema(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop", desc.Connection)
	assert.Equal(t, "sqlite", desc.Dialect)
	assert.Equal(t, []string{"customers", "orders"}, desc.TableNames())

	orders, ok := desc.Table("orders")
	require.True(t, ok)
	assert.Equal(t, []types.ForeignKey{{Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"}}, orders.ForeignKeys)
}

func TestExtractSchemaUnknownConnection(t *testing.T) {
	e := NewExtractor(database.NewRegistry())

	_, err := e.ExtractSchema(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrConnectionNotFound)
}

func TestExtractSchemaUnreachable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery("information_schema.tables").WillReturnError(assert.AnError)

	r := database.NewRegistry()
	_, err = r.AddDB(config.ConnectionConfig{
		Name: "pg", Dialect: "postgresql", Username: "u", Password: "p", Host: "h", Port: 5432, Database: "d",
	}, db)
	require.NoError(t, err)
	defer r.CloseAll()

	_, err = NewExtractor(r).ExtractSchema(context.Background(), "pg")
	require.ErrorIs(t, err, apperrors.ErrSchemaExtraction)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractSchemaTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery("information_schema.tables").
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	r := database.NewRegistry()
	_, err = r.AddDB(config.ConnectionConfig{
		Name: "pg", Dialect: "postgres", Username: "u", Password: "p", Host: "h", Port: 5432, Database: "d",
	}, db)
	require.NoError(t, err)
	defer r.CloseAll()

	_, err = NewExtractor(r, WithTimeout(20*time.Millisecond)).ExtractSchema(context.Background(), "pg")
	require.ErrorIs(t, err, apperrors.ErrSchemaExtraction)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	// the driver error stays reachable next to the deadline
	assert.ErrorIs(t, err, sqlmock.ErrCancelled)
}

func TestExtractAll(t *testing.T) {
	r := newShopRegistry(t, "a", "b", "c")

	all, err := NewExtractor(r).ExtractAll(context.Background(), "a", "b", "c")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for name, desc := range all {
		assert.Equal(t, name, desc.Connection)
		assert.Len(t, desc.Tables, 2)
	}

	_, err = NewExtractor(r).ExtractAll(context.Background(), "a", "nope")
	assert.ErrorIs(t, err, apperrors.ErrConnectionNotFound)
}

func TestRender(t *testing.T) {
	def := "'open'"
	desc := &types.SchemaDescription{
		Dialect: "postgresql",
		Tables: []types.TableSchema{
			{
				Name: "customers",
				Columns: []types.ColumnSchema{
					{Name: "id", Type: "INTEGER", IsPrimaryKey: true, IsAutoGenerated: true},
					{Name: "name", Type: "TEXT"},
				},
			},
			{
				Name: "orders",
				Columns: []types.ColumnSchema{
					{Name: "customer_id", Type: "INTEGER"},
					{Name: "sku", Type: "TEXT"},
					{Name: "status", Type: "TEXT", Nullable: true, DefaultValue: &def},
				},
				ForeignKeys: []types.ForeignKey{{Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"}},
			},
		},
	}
	desc.Tables[1].Columns[0].IsPrimaryKey = true
	desc.Tables[1].Columns[1].IsPrimaryKey = true

	want := strings.Join([]string{
		"-- dialect: postgresql",
		"CREATE TABLE customers (",
		"  id INTEGER NOT NULL PRIMARY KEY,",
		"  name TEXT NOT NULL",
		");",
		"-- customers.id is auto-generated",
		"",
		"CREATE TABLE orders (",
		"  customer_id INTEGER NOT NULL,",
		"  sku TEXT NOT NULL,",
		"  status TEXT DEFAULT 'open',",
		"  PRIMARY KEY (customer_id, sku),",
		"  FOREIGN KEY (customer_id) REFERENCES customers (id)",
		");",
		"",
	}, "\n")
	assert.Equal(t, want, Render(desc))
	assert.Equal(t, Render(desc), Render(desc))
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "-- dialect: sqlite\n-- no tables\n", Render(&types.SchemaDescription{Dialect: "sqlite"}))
}

func TestRenderYAML(t *testing.T) {
	desc := &types.SchemaDescription{
		Connection: "shop",
		Tables:     []types.TableSchema{{Name: "t", Columns: []types.ColumnSchema{{Name: "a", Type: "TEXT"}}}},
	}
	out, err := RenderYAML(desc)
	require.NoError(t, err)

	var back types.SchemaDescription
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "shop", back.Connection)
	assert.Equal(t, "a", back.Tables[0].Columns[0].Name)
}
