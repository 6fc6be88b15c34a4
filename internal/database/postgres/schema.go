package postgres

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

// Foreign and primary keys come straight from pg_constraint so composite
// keys keep their column pairing (UNNEST ... WITH ORDINALITY).
const constraintsQuery = `
	WITH fk_columns AS (
		SELECT
			src_table.relname AS table_name,
			src_attr.attname AS column_name,
			tgt_table.relname AS foreign_table_name,
			tgt_attr.attname AS foreign_column_name
		FROM pg_constraint con
		JOIN pg_class src_table ON con.conrelid = src_table.oid
		JOIN pg_namespace ns ON src_table.relnamespace = ns.oid
		CROSS JOIN LATERAL UNNEST(con.conkey, con.confkey) WITH ORDINALITY AS cols(src_col, tgt_col, ord)
		JOIN pg_attribute src_attr ON src_attr.attrelid = src_table.oid AND src_attr.attnum = cols.src_col
		JOIN pg_class tgt_table ON con.confrelid = tgt_table.oid
		JOIN pg_attribute tgt_attr ON tgt_attr.attrelid = tgt_table.oid AND tgt_attr.attnum = cols.tgt_col
		WHERE ns.nspname = current_schema()
		  AND con.contype = 'f'
	),
	pk_columns AS (
		SELECT
			src_table.relname AS table_name,
			src_attr.attname AS column_name
		FROM pg_constraint con
		JOIN pg_class src_table ON con.conrelid = src_table.oid
		JOIN pg_namespace ns ON src_table.relnamespace = ns.oid
		CROSS JOIN LATERAL UNNEST(con.conkey) AS cols(src_col)
		JOIN pg_attribute src_attr ON src_attr.attrelid = src_table.oid AND src_attr.attnum = cols.src_col
		WHERE ns.nspname = current_schema()
		  AND con.contype = 'p'
	)
	SELECT table_name, column_name, 'FOREIGN KEY', foreign_table_name, foreign_column_name
	FROM fk_columns
	UNION ALL
	SELECT table_name, column_name, 'PRIMARY KEY', NULL, NULL
	FROM pk_columns
`

func (p *Adapter) GetCurrentSchema(ctx context.Context) ([]types.TableSchema, error) {
	if p.db == nil {
		return nil, fmt.Errorf("postgres adapter is not connected")
	}

	tableNames, err := p.GetAllTableNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(tableNames) == 0 {
		return []types.TableSchema{}, nil
	}

	columns, err := p.getAllTablesColumns(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]types.TableSchema, len(tableNames))
	index := make(map[string]*types.TableSchema, len(tableNames))
	for i, name := range tableNames {
		tables[i] = types.TableSchema{Name: name, Columns: columns[name]}
		index[name] = &tables[i]
	}

	if err := p.applyConstraints(ctx, index); err != nil {
		return nil, err
	}

	for i := range tables {
		fks := tables[i].ForeignKeys
		sort.Slice(fks, func(a, b int) bool {
			return common.LessForeignKey(fks[a].Column, fks[a].ReferencedTable, fks[a].ReferencedColumn,
				fks[b].Column, fks[b].ReferencedTable, fks[b].ReferencedColumn)
		})
	}
	return tables, nil
}

func (p *Adapter) GetAllTableNames(ctx context.Context) ([]string, error) {
	query, args, err := p.qb.Select("table_name").
		From("information_schema.tables").
		Where("table_schema = current_schema()").
		Where(squirrel.Eq{"table_type": "BASE TABLE"}).
		OrderBy("table_name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]string, 0, 32)
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

func (p *Adapter) getAllTablesColumns(ctx context.Context) (map[string][]types.ColumnSchema, error) {
	query, args, err := p.qb.Select(
		"table_name",
		"column_name",
		"udt_name",
		"is_nullable",
		"column_default",
		"character_maximum_length",
		"numeric_precision",
		"numeric_scale",
		"is_identity",
		"is_generated",
	).
		From("information_schema.columns").
		Where("table_schema = current_schema()").
		OrderBy("table_name", "ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]types.ColumnSchema)
	for rows.Next() {
		var (
			tableName, udtName, isNullable        string
			column                                types.ColumnSchema
			columnDefault                         sql.NullString
			charMaxLength, numPrecision, numScale sql.NullInt64
			isIdentity, isGenerated               sql.NullString
		)
		if err := rows.Scan(
			&tableName,
			&column.Name,
			&udtName,
			&isNullable,
			&columnDefault,
			&charMaxLength,
			&numPrecision,
			&numScale,
			&isIdentity,
			&isGenerated,
		); err != nil {
			return nil, err
		}

		column.Type = formatPostgresType(udtName, charMaxLength, numPrecision, numScale)
		column.Nullable = isNullable == "YES"
		column.IsAutoGenerated = isIdentity.String == "YES" || isGenerated.String == "ALWAYS"

		if columnDefault.Valid {
			if strings.Contains(strings.ToLower(columnDefault.String), "nextval(") {
				column.IsAutoGenerated = true
			}
			def := cleanDefaultValue(columnDefault.String)
			column.DefaultValue = &def
		}

		result[tableName] = append(result[tableName], column)
	}
	return result, rows.Err()
}

func (p *Adapter) applyConstraints(ctx context.Context, index map[string]*types.TableSchema) error {
	rows, err := p.db.QueryContext(ctx, constraintsQuery)
	if err != nil {
		return fmt.Errorf("failed to query constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, columnName, constraintType string
		var fkTable, fkColumn sql.NullString
		if err := rows.Scan(&tableName, &columnName, &constraintType, &fkTable, &fkColumn); err != nil {
			return err
		}

		table, ok := index[tableName]
		if !ok {
			continue
		}
		switch constraintType {
		case "PRIMARY KEY":
			if col, found := table.Column(columnName); found {
				col.IsPrimaryKey = true
				col.Nullable = false
			}
		case "FOREIGN KEY":
			table.ForeignKeys = append(table.ForeignKeys, types.ForeignKey{
				Column:           columnName,
				ReferencedTable:  fkTable.String,
				ReferencedColumn: fkColumn.String,
			})
		}
	}
	return rows.Err()
}

var typeMap = map[string]string{
	"varchar": "VARCHAR", "bpchar": "CHAR", "text": "TEXT",
	"int2": "SMALLINT", "int4": "INTEGER", "int8": "BIGINT",
	"float4": "REAL", "float8": "DOUBLE PRECISION", "numeric": "NUMERIC",
	"bool": "BOOLEAN", "date": "DATE", "time": "TIME",
	"timestamp": "TIMESTAMP", "timestamptz": "TIMESTAMP WITH TIME ZONE",
	"uuid": "UUID", "json": "JSON", "jsonb": "JSONB", "bytea": "BYTEA",
}

func formatPostgresType(udtName string, charMaxLength, numPrecision, numScale sql.NullInt64) string {
	name := strings.ToLower(udtName)
	if strings.HasPrefix(name, "_") {
		return formatPostgresType(name[1:], sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{}) + "[]"
	}

	base, ok := typeMap[name]
	if !ok {
		// enums and other user-defined types keep their own name
		return udtName
	}

	switch name {
	case "varchar", "bpchar":
		if charMaxLength.Valid {
			return fmt.Sprintf("%s(%d)", base, charMaxLength.Int64)
		}
	case "numeric":
		if numPrecision.Valid && numScale.Valid {
			return fmt.Sprintf("NUMERIC(%d,%d)", numPrecision.Int64, numScale.Int64)
		}
	}
	return base
}

// cleanDefaultValue strips type casts such as 'active'::status.
func cleanDefaultValue(def string) string {
	if idx := strings.Index(def, "::"); idx > 0 && !strings.HasPrefix(strings.ToLower(def), "nextval(") {
		return def[:idx]
	}
	return def
}
