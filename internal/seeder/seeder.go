package seeder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/database"
	"github.com/Rana718/synthdb/internal/schema"
	"github.com/Rana718/synthdb/internal/types"
)

// Sessions hands out units of work for named connections.
type Sessions interface {
	GetSession(name string) (*database.Session, error)
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTimeout bounds a whole Insert or Plan call. Zero means no bound beyond ctx.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// Engine writes generated rows in foreign key order inside one transaction.
type Engine struct {
	sessions Sessions
	schemas  schema.Source
	logger   *zap.Logger
	timeout  time.Duration
}

func NewEngine(sessions Sessions, schemas schema.Source, opts ...Option) *Engine {
	e := &Engine{sessions: sessions, schemas: schemas, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan validates result against the live schema and returns the insertion
// order without writing anything.
func (e *Engine) Plan(ctx context.Context, connection string, result *types.GenerationResult) (*types.InsertionPlan, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	b, err := e.prepare(ctx, connection, result)
	if err != nil {
		return nil, err
	}
	return &types.InsertionPlan{Order: b.order}, nil
}

// Insert persists every row of result. Either all rows are committed or the
// transaction is rolled back and an error is returned.
func (e *Engine) Insert(ctx context.Context, connection string, result *types.GenerationResult) (*types.InsertionOutcome, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	b, err := e.prepare(ctx, connection, result)
	if err != nil {
		return nil, err
	}

	log := e.logger.With(zap.String("connection", connection), zap.String("dialect", b.dialect))
	outcome := &types.InsertionOutcome{
		Connection: connection,
		Order:      b.order,
		Counts:     make(map[string]int, len(b.order)),
	}
	if len(b.order) == 0 {
		outcome.Duration = time.Since(start)
		log.Info("nothing to insert")
		return outcome, nil
	}

	session, err := e.sessions.GetSession(connection)
	if err != nil {
		return nil, err
	}

	tx, err := session.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.FromContext("insert", fmt.Errorf("failed to begin transaction: %w", err))
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	adapter := session.Adapter()
	persisted := make(map[string][]persistedRow, len(b.order))
	for _, name := range b.order {
		t := b.tables[name]
		for i, row := range t.Data.Values {
			stored, err := insertRow(ctx, tx, adapter, t, row, persisted)
			if err != nil {
				log.Warn("insert failed, rolling back",
					zap.String("table", name), zap.Int("row", i+1), zap.Error(err))
				return nil, insertError(ctx, name, i+1, err)
			}
			persisted[name] = append(persisted[name], stored)
		}
		outcome.Counts[name] = len(t.Data.Values)
		log.Debug("table inserted", zap.String("table", name), zap.Int("rows", len(t.Data.Values)))
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.FromContext("insert", fmt.Errorf("failed to commit transaction: %w", err))
	}
	committed = true

	outcome.Duration = time.Since(start)
	log.Info("batch committed",
		zap.Strings("order", b.order),
		zap.Int("rows", outcome.Total()),
		zap.Duration("duration", outcome.Duration))
	return outcome, nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// prepare checks tables, columns and references against the live schema and
// computes the insertion order.
func (e *Engine) prepare(ctx context.Context, connection string, result *types.GenerationResult) (*batch, error) {
	desc, err := e.schemas.ExtractSchema(ctx, connection)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = types.NewGenerationResult()
	}

	b := &batch{
		dialect: desc.Dialect,
		tables:  make(map[string]*TableInfo, result.Len()),
	}

	names := result.Names()
	for _, name := range names {
		if result.Tables[name] == nil {
			return nil, &apperrors.MalformedOutputError{Reason: fmt.Sprintf("table %s has no data", name)}
		}
		ts, ok := desc.Table(name)
		if !ok {
			return nil, &apperrors.UnknownTableError{Table: name, Suggestion: schema.Suggest(name, desc.TableNames())}
		}
		info := &TableInfo{
			Name:        name,
			Schema:      ts,
			Data:        result.Tables[name],
			ForeignKeys: make(map[string]*types.ForeignKey),
		}
		for _, attr := range info.Data.Attributes {
			if _, ok := ts.Column(attr); !ok {
				return nil, &apperrors.UnknownColumnError{Table: name, Column: attr}
			}
			if fk, ok := ts.ForeignKeyFor(attr); ok {
				info.ForeignKeys[attr] = fk
			}
		}
		b.tables[name] = info
	}

	graph := NewDependencyGraph()
	for _, name := range names {
		info := b.tables[name]
		seen := make(map[string]bool)
		for _, fk := range info.Schema.ForeignKeys {
			ref := fk.ReferencedTable
			if ref == name || seen[ref] {
				continue
			}
			if _, ok := b.tables[ref]; !ok {
				continue
			}
			seen[ref] = true
			info.Dependencies = append(info.Dependencies, ref)
		}
		graph.AddTable(name, info.Dependencies...)
	}

	if b.order, err = graph.BuildInsertionOrder(); err != nil {
		return nil, err
	}
	if err := b.checkReferences(); err != nil {
		return nil, err
	}
	return b, nil
}

// checkReferences validates every reference marker and records which
// database-assigned values have to be captured on insert.
func (b *batch) checkReferences() error {
	capture := make(map[string]map[string]bool)

	for _, name := range b.order {
		t := b.tables[name]
		for i, row := range t.Data.Values {
			for j, attr := range t.Data.Attributes {
				ref, isRef, err := types.ParseReference(row[j])
				if !isRef {
					continue
				}
				fail := func(reason string) error {
					return &apperrors.UnresolvedReferenceError{Table: name, Column: attr, Value: row[j], Reason: reason}
				}
				if err != nil {
					return fail(err.Error())
				}

				fk, ok := t.ForeignKeys[attr]
				switch {
				case !ok:
					return fail("column is not a foreign key")
				case ref.Table != fk.ReferencedTable:
					return fail(fmt.Sprintf("column references table %s", fk.ReferencedTable))
				}

				target, ok := b.tables[ref.Table]
				switch {
				case !ok:
					return fail(fmt.Sprintf("table %s is not part of this batch", ref.Table))
				case ref.Row > len(target.Data.Values):
					return fail(fmt.Sprintf("table %s has only %d rows", ref.Table, len(target.Data.Values)))
				case ref.Table == name && ref.Row > i:
					return fail("a row can only reference earlier rows of its own table")
				}

				if !slices.Contains(target.Data.Attributes, fk.ReferencedColumn) {
					if capture[ref.Table] == nil {
						capture[ref.Table] = make(map[string]bool)
					}
					capture[ref.Table][fk.ReferencedColumn] = true
				}
			}
		}
	}

	for table, cols := range capture {
		t := b.tables[table]
		for _, c := range t.Schema.Columns {
			if cols[c.Name] {
				t.Capture = append(t.Capture, c.Name)
			}
		}
	}
	return nil
}

func insertRow(ctx context.Context, conn database.DatabaseConnection, adapter database.Adapter, t *TableInfo, row []any, persisted map[string][]persistedRow) (persistedRow, error) {
	stored := make(persistedRow, len(t.Data.Attributes)+len(t.Capture))
	columns := make([]string, len(t.Data.Attributes))
	values := make([]any, len(t.Data.Attributes))

	for i, attr := range t.Data.Attributes {
		v, err := resolveValue(t, attr, row[i], persisted)
		if err != nil {
			return nil, err
		}
		columns[i] = adapter.QuoteIdentifier(attr)
		values[i] = v
		stored[attr] = v
	}

	builder := squirrel.Insert(adapter.QuoteIdentifier(t.Name)).
		Columns(columns...).
		Values(values...).
		PlaceholderFormat(adapter.PlaceholderFormat())

	if len(t.Capture) > 0 && adapter.SupportsReturning() {
		returning := make([]string, len(t.Capture))
		for i, c := range t.Capture {
			returning[i] = adapter.QuoteIdentifier(c)
		}
		query, args, err := builder.Suffix("RETURNING " + strings.Join(returning, ", ")).ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build insert: %w", err)
		}

		dest := make([]any, len(t.Capture))
		ptrs := make([]any, len(t.Capture))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := conn.QueryRowContext(ctx, query, args...).Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, c := range t.Capture {
			stored[c] = dest[i]
		}
		return stored, nil
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}
	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if key := generatedKey(t.Schema); key != "" && slices.Contains(t.Capture, key) {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read generated %s: %w", key, err)
		}
		stored[key] = id
	}
	return stored, nil
}

// resolveValue replaces a reference marker with the persisted value it
// points at and converts decoded JSON into driver values.
func resolveValue(t *TableInfo, attr string, v any, persisted map[string][]persistedRow) (any, error) {
	ref, isRef, err := types.ParseReference(v)
	if err != nil {
		return nil, &apperrors.UnresolvedReferenceError{Table: t.Name, Column: attr, Value: v, Reason: err.Error()}
	}
	if !isRef {
		return convertValue(v)
	}

	fk := t.ForeignKeys[attr]
	rows := persisted[ref.Table]
	if fk == nil || ref.Row > len(rows) {
		return nil, &apperrors.UnresolvedReferenceError{Table: t.Name, Column: attr, Value: v, Reason: "referenced row has not been inserted"}
	}
	val, ok := rows[ref.Row-1][fk.ReferencedColumn]
	if !ok {
		return nil, &apperrors.UnresolvedReferenceError{
			Table:  t.Name,
			Column: attr,
			Value:  v,
			Reason: fmt.Sprintf("value of %s.%s is neither generated nor returned by the database", ref.Table, fk.ReferencedColumn),
		}
	}
	return val, nil
}

// convertValue passes integral numbers as int64, other numbers as float64 and
// nested arrays or objects as their JSON text. Integers beyond int64 keep
// their decimal text.
func convertValue(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		if !strings.ContainsAny(x.String(), ".eE") {
			if _, ok := new(big.Int).SetString(x.String(), 10); ok {
				return x.String(), nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", x, err)
		}
		return f, nil
	case []any, map[string]any:
		out, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("failed to encode nested value: %w", err)
		}
		return string(out), nil
	default:
		return v, nil
	}
}

// generatedKey returns the single auto-generated primary key column, the
// only column LastInsertId can report.
func generatedKey(t *types.TableSchema) string {
	pk := t.PrimaryKey()
	if len(pk) != 1 {
		return ""
	}
	if c, ok := t.Column(pk[0]); ok && c.IsAutoGenerated {
		return c.Name
	}
	return ""
}

func insertError(ctx context.Context, table string, row int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !apperrors.IsTimeout(err) {
		err = errors.Join(err, ctxErr)
	}
	if apperrors.IsTimeout(err) {
		return apperrors.FromContext("insert into "+table, err)
	}
	if errors.Is(err, apperrors.ErrUnresolvedReference) {
		return err
	}
	return &apperrors.InsertFailedError{Table: table, Row: row, Err: err}
}
