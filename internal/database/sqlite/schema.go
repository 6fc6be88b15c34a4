package sqlite

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

// table_xinfo hidden flags
const (
	hiddenVirtualTable     = 1
	hiddenGeneratedVirtual = 2
	hiddenGeneratedStored  = 3
)

type rawForeignKey struct {
	id    int
	seq   int
	table string
	from  string
	to    sql.NullString
}

// GetCurrentSchema reads sqlite_master and the table/foreign key pragmas.
// Every result set is drained before the next query runs: in-memory
// databases are pinned to a single connection.
func (s *Adapter) GetCurrentSchema(ctx context.Context) ([]types.TableSchema, error) {
	if s.db == nil {
		return nil, fmt.Errorf("sqlite adapter is not connected")
	}

	names, err := s.GetAllTableNames(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]types.TableSchema, 0, len(names))
	pkOrder := make(map[string][]string, len(names))
	pending := make(map[string][]rawForeignKey, len(names))

	for _, name := range names {
		columns, pks, err := s.getTableColumns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", name, err)
		}
		fks, err := s.getForeignKeys(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to get foreign keys for table %s: %w", name, err)
		}
		tables = append(tables, types.TableSchema{Name: name, Columns: columns})
		pkOrder[name] = pks
		pending[name] = fks
	}

	for i := range tables {
		for _, fk := range pending[tables[i].Name] {
			ref := fk.to.String
			if !fk.to.Valid || ref == "" {
				// REFERENCES parent without a column list targets the parent's primary key
				pks := pkOrder[fk.table]
				if fk.seq < len(pks) {
					ref = pks[fk.seq]
				}
			}
			tables[i].ForeignKeys = append(tables[i].ForeignKeys, types.ForeignKey{
				Column:           fk.from,
				ReferencedTable:  fk.table,
				ReferencedColumn: ref,
			})
		}
		sort.Slice(tables[i].ForeignKeys, func(a, b int) bool {
			x, y := tables[i].ForeignKeys[a], tables[i].ForeignKeys[b]
			return common.LessForeignKey(x.Column, x.ReferencedTable, x.ReferencedColumn, y.Column, y.ReferencedTable, y.ReferencedColumn)
		})
	}

	return tables, nil
}

func (s *Adapter) GetAllTableNames(ctx context.Context) ([]string, error) {
	query, args, err := s.qb.Select("name").
		From("sqlite_master").
		Where(squirrel.Eq{"type": "table"}).
		Where(squirrel.NotLike{"name": "sqlite_%"}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// getTableColumns returns the columns in declaration order and the primary
// key column names ordered by their position in the key.
func (s *Adapter) getTableColumns(ctx context.Context, tableName string) ([]types.ColumnSchema, []string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_xinfo(%s)", s.QuoteIdentifier(tableName)))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []types.ColumnSchema
	pkPos := make(map[string]int)
	for rows.Next() {
		var (
			cid          int
			name         string
			dataType     string
			notNull      int
			defaultValue sql.NullString
			pk           int
			hidden       int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk, &hidden); err != nil {
			return nil, nil, err
		}
		if hidden == hiddenVirtualTable {
			continue
		}

		column := types.ColumnSchema{
			Name:            name,
			Type:            dataType,
			Nullable:        notNull == 0 && pk == 0,
			IsPrimaryKey:    pk > 0,
			IsAutoGenerated: hidden == hiddenGeneratedVirtual || hidden == hiddenGeneratedStored,
		}
		if defaultValue.Valid {
			v := defaultValue.String
			column.DefaultValue = &v
		}
		if pk > 0 {
			pkPos[name] = pk
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	pks := make([]string, 0, len(pkPos))
	for name := range pkPos {
		pks = append(pks, name)
	}
	sort.Slice(pks, func(i, j int) bool { return pkPos[pks[i]] < pkPos[pks[j]] })

	// a lone INTEGER PRIMARY KEY aliases the rowid
	if len(pks) == 1 {
		for i := range columns {
			if columns[i].Name == pks[0] && strings.EqualFold(strings.TrimSpace(columns[i].Type), "INTEGER") {
				columns[i].IsAutoGenerated = true
			}
		}
	}

	return columns, pks, nil
}

func (s *Adapter) getForeignKeys(ctx context.Context, tableName string) ([]rawForeignKey, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", s.QuoteIdentifier(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []rawForeignKey
	for rows.Next() {
		var (
			fk                        rawForeignKey
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&fk.id, &fk.seq, &fk.table, &fk.from, &fk.to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}
