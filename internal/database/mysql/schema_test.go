package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rana718/synthdb/internal/config"
	"github.com/Rana718/synthdb/internal/types"
)

func TestGetCurrentSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	a := New()
	a.Attach(db)

	mock.ExpectQuery(`SELECT table_name FROM information_schema\.tables WHERE table_schema = DATABASE\(\)`).
		WithArgs("BASE TABLE").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("orders"))
	mock.ExpectQuery(`FROM information_schema\.columns`).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "column_type", "is_nullable", "column_default", "column_key", "extra"}).
			AddRow("customers", "id", "int unsigned", "NO", nil, "PRI", "auto_increment").
			AddRow("customers", "email", "varchar(255)", "YES", nil, "UNI", "").
			AddRow("customers", "created_at", "timestamp", "NO", "CURRENT_TIMESTAMP", "", "DEFAULT_GENERATED").
			AddRow("orders", "id", "bigint", "NO", nil, "PRI", "auto_increment").
			AddRow("orders", "customer_id", "int unsigned", "NO", nil, "MUL", "").
			AddRow("orders", "total_cents", "int", "YES", nil, "", "STORED GENERATED"))
	mock.ExpectQuery(`FROM information_schema\.key_column_usage`).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "referenced_table_name", "referenced_column_name"}).
			AddRow("orders", "customer_id", "customers", "id"))

	tables, err := a.GetCurrentSchema(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, tables, 2)

	customers := tables[0]
	id, _ := customers.Column("id")
	assert.Equal(t, "INT UNSIGNED", id.Type)
	assert.True(t, id.IsPrimaryKey)
	assert.True(t, id.IsAutoGenerated)
	assert.False(t, id.Nullable)

	email, _ := customers.Column("email")
	assert.True(t, email.Nullable)
	assert.False(t, email.IsPrimaryKey)

	created, _ := customers.Column("created_at")
	assert.False(t, created.IsAutoGenerated)
	require.NotNil(t, created.DefaultValue)
	assert.Equal(t, "CURRENT_TIMESTAMP", *created.DefaultValue)

	orders := tables[1]
	cents, _ := orders.Column("total_cents")
	assert.True(t, cents.IsAutoGenerated)
	assert.Equal(t, []types.ForeignKey{{Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"}}, orders.ForeignKeys)
	assert.Empty(t, customers.ForeignKeys)
}

func TestFormatDSN(t *testing.T) {
	dsn := formatDSN(config.ConnectionConfig{
		Username: "u",
		Password: "p",
		Host:     "h",
		Port:     3306,
		Database: "d",
	})
	assert.Contains(t, dsn, "u:p@tcp(h:3306)/d")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestQuoteIdentifier(t *testing.T) {
	a := New()
	assert.Equal(t, "`order`", a.QuoteIdentifier("order"))
	assert.Equal(t, "`we``ird`", a.QuoteIdentifier("we`ird"))
	assert.False(t, a.SupportsReturning())
}
