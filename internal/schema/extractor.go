package schema

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/database"
	"github.com/Rana718/synthdb/internal/types"
)

// Source produces a fresh schema description for a named connection.
type Source interface {
	ExtractSchema(ctx context.Context, connection string) (*types.SchemaDescription, error)
}

type Option func(*Extractor)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTimeout bounds each introspection call. Zero means no bound beyond ctx.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// Extractor introspects registered connections. Nothing is cached: every
// call reads live metadata.
type Extractor struct {
	registry *database.Registry
	logger   *zap.Logger
	timeout  time.Duration
}

func NewExtractor(registry *database.Registry, opts ...Option) *Extractor {
	e := &Extractor{registry: registry, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractSchema returns tables sorted by name with columns in declaration
// order and foreign keys sorted by (column, referenced table, referenced column).
func (e *Extractor) ExtractSchema(ctx context.Context, connection string) (*types.SchemaDescription, error) {
	handle, err := e.registry.Get(connection)
	if err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	tables, err := handle.Adapter().GetCurrentSchema(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !apperrors.IsTimeout(err) {
			err = errors.Join(err, ctxErr)
		}
		return nil, &apperrors.SchemaExtractionError{
			Connection: connection,
			Err:        apperrors.FromContext("schema extraction", err),
		}
	}

	sort.SliceStable(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	e.logger.Debug("schema extracted",
		zap.String("connection", connection),
		zap.Int("tables", len(tables)),
		zap.Duration("took", time.Since(start)))

	return &types.SchemaDescription{
		Connection: connection,
		Dialect:    handle.Dialect().Base,
		Tables:     tables,
	}, nil
}

// ExtractAll introspects several connections concurrently. The first
// failure cancels the remaining extractions.
func (e *Extractor) ExtractAll(ctx context.Context, connections ...string) (map[string]*types.SchemaDescription, error) {
	var mu sync.Mutex
	out := make(map[string]*types.SchemaDescription, len(connections))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range connections {
		name := name
		g.Go(func() error {
			desc, err := e.ExtractSchema(gctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = desc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
