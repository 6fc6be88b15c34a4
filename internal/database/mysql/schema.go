package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/Rana718/synthdb/internal/database/common"
	"github.com/Rana718/synthdb/internal/types"
)

func (m *Adapter) GetCurrentSchema(ctx context.Context) ([]types.TableSchema, error) {
	if m.db == nil {
		return nil, fmt.Errorf("mysql adapter is not connected")
	}

	tableNames, err := m.GetAllTableNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(tableNames) == 0 {
		return []types.TableSchema{}, nil
	}

	columns, err := m.getAllTablesColumns(ctx)
	if err != nil {
		return nil, err
	}
	foreignKeys, err := m.getAllForeignKeys(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]types.TableSchema, 0, len(tableNames))
	for _, name := range tableNames {
		fks := foreignKeys[name]
		sort.Slice(fks, func(a, b int) bool {
			return common.LessForeignKey(fks[a].Column, fks[a].ReferencedTable, fks[a].ReferencedColumn,
				fks[b].Column, fks[b].ReferencedTable, fks[b].ReferencedColumn)
		})
		tables = append(tables, types.TableSchema{
			Name:        name,
			Columns:     columns[name],
			ForeignKeys: fks,
		})
	}
	return tables, nil
}

func (m *Adapter) GetAllTableNames(ctx context.Context) ([]string, error) {
	query, args, err := m.qb.Select("table_name").
		From("information_schema.tables").
		Where("table_schema = DATABASE()").
		Where(squirrel.Eq{"table_type": "BASE TABLE"}).
		OrderBy("table_name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (m *Adapter) getAllTablesColumns(ctx context.Context) (map[string][]types.ColumnSchema, error) {
	query, args, err := m.qb.Select(
		"table_name",
		"column_name",
		"column_type",
		"is_nullable",
		"column_default",
		"column_key",
		"extra",
	).
		From("information_schema.columns").
		Where("table_schema = DATABASE()").
		OrderBy("table_name", "ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]types.ColumnSchema)
	for rows.Next() {
		var (
			tableName, columnType, isNullable string
			column                            types.ColumnSchema
			columnDefault                     sql.NullString
			columnKey, extra                  sql.NullString
		)
		if err := rows.Scan(&tableName, &column.Name, &columnType, &isNullable, &columnDefault, &columnKey, &extra); err != nil {
			return nil, err
		}

		column.Type = strings.ToUpper(columnType)
		column.IsPrimaryKey = columnKey.String == "PRI"
		column.Nullable = isNullable == "YES" && !column.IsPrimaryKey
		column.IsAutoGenerated = isAutoGenerated(extra.String)
		if columnDefault.Valid {
			def := columnDefault.String
			column.DefaultValue = &def
		}

		result[tableName] = append(result[tableName], column)
	}
	return result, rows.Err()
}

// isAutoGenerated matches auto_increment and generated columns, but not
// DEFAULT_GENERATED which only marks an expression default.
func isAutoGenerated(extra string) bool {
	extra = strings.ToLower(extra)
	if strings.Contains(extra, "auto_increment") {
		return true
	}
	return strings.Contains(extra, "virtual generated") || strings.Contains(extra, "stored generated")
}

func (m *Adapter) getAllForeignKeys(ctx context.Context) (map[string][]types.ForeignKey, error) {
	query, args, err := m.qb.Select(
		"table_name",
		"column_name",
		"referenced_table_name",
		"referenced_column_name",
	).
		From("information_schema.key_column_usage").
		Where("table_schema = DATABASE()").
		Where(squirrel.NotEq{"referenced_table_name": nil}).
		OrderBy("table_name", "column_name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]types.ForeignKey)
	for rows.Next() {
		var tableName string
		var fk types.ForeignKey
		if err := rows.Scan(&tableName, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, err
		}
		result[tableName] = append(result[tableName], fk)
	}
	return result, rows.Err()
}
