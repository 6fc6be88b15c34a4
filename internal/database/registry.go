package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/config"
)

// Handle binds one configured database: its adapter owns the pooled engine,
// and sessions are started from it.
type Handle struct {
	cfg     config.ConnectionConfig
	dialect config.Dialect
	url     string
	adapter Adapter
}

func (h *Handle) Name() string                    { return h.cfg.Name }
func (h *Handle) Config() config.ConnectionConfig { return h.cfg }
func (h *Handle) Dialect() config.Dialect         { return h.dialect }
func (h *Handle) URL() string                     { return h.url }
func (h *Handle) Adapter() Adapter                { return h.adapter }
func (h *Handle) DB() *sql.DB                     { return h.adapter.DB() }

// NewSession returns a fresh unit-of-work factory bound to this handle's engine.
func (h *Handle) NewSession() *Session {
	return &Session{handle: h}
}

func (h *Handle) Close() error {
	return h.adapter.Close()
}

type Session struct {
	handle *Handle
}

func (s *Session) Name() string     { return s.handle.Name() }
func (s *Session) Adapter() Adapter { return s.handle.adapter }

func (s *Session) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	db := s.handle.adapter.DB()
	if db == nil {
		return nil, fmt.Errorf("connection %s is closed", s.handle.Name())
	}
	return db.BeginTx(ctx, opts)
}

type Option func(*Registry)

// WithAllowedDialects replaces the default sqlite/mysql/postgresql allow-list.
func WithAllowedDialects(dialects ...string) Option {
	return func(r *Registry) {
		r.allowed = append([]string(nil), dialects...)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry owns every connection handle. Mutations (AddConnection, AddDB,
// CloseAll) hold the write lock; lookups share the read lock.
type Registry struct {
	mu         sync.RWMutex
	handles    map[string]*Handle
	allowed    []string
	logger     *zap.Logger
	newAdapter func(config.Dialect) (Adapter, error)
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		handles:    make(map[string]*Handle),
		allowed:    append([]string(nil), config.DefaultDialects...),
		logger:     zap.NewNop(),
		newAdapter: NewAdapter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AllowedDialects returns a copy of the dialect allow-list.
func (r *Registry) AllowedDialects() []string {
	return append([]string(nil), r.allowed...)
}

// AddConnection validates cfg, builds its connection URL and opens a lazily
// pooled engine. A handle with the same name is closed and replaced.
func (r *Registry) AddConnection(ctx context.Context, cfg config.ConnectionConfig) (*Handle, error) {
	h, err := r.newHandle(cfg)
	if err != nil {
		return nil, err
	}
	if err := h.adapter.Connect(ctx, h.cfg); err != nil {
		return nil, fmt.Errorf("failed to open connection %s: %w", h.cfg.Name, err)
	}
	r.store(h)
	return h, nil
}

// AddDB registers an already opened pool under cfg. The registry takes
// ownership and closes db on CloseAll.
func (r *Registry) AddDB(cfg config.ConnectionConfig, db *sql.DB) (*Handle, error) {
	if db == nil {
		return nil, fmt.Errorf("nil database for connection %s", cfg.Name)
	}
	h, err := r.newHandle(cfg)
	if err != nil {
		return nil, err
	}
	h.adapter.Attach(db)
	r.store(h)
	return h, nil
}

func (r *Registry) newHandle(cfg config.ConnectionConfig) (*Handle, error) {
	if err := cfg.Validate(r.allowed); err != nil {
		return nil, err
	}
	dialect, err := config.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	adapter, err := r.newAdapter(dialect)
	if err != nil {
		return nil, &apperrors.InvalidConfigurationError{Name: cfg.Name, Invalid: []string{"dialect"}, Detail: err.Error()}
	}
	return &Handle{
		cfg:     cfg,
		dialect: dialect,
		url:     config.BuildConnectionURL(cfg),
		adapter: adapter,
	}, nil
}

func (r *Registry) store(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.handles[h.cfg.Name]; ok {
		if err := prev.Close(); err != nil {
			r.logger.Warn("failed to dispose replaced connection",
				zap.String("connection", h.cfg.Name), zap.Error(err))
		}
	}
	r.handles[h.cfg.Name] = h
	r.logger.Debug("connection registered",
		zap.String("connection", h.cfg.Name),
		zap.String("dialect", h.dialect.String()),
		zap.String("url", config.BuildConnectionURL(h.cfg.Redacted())))
}

func (r *Registry) Get(name string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handles[name]
	if !ok {
		return nil, &apperrors.ConnectionNotFoundError{Name: name}
	}
	return h, nil
}

// GetEngine returns the adapter that owns the connection pool.
func (r *Registry) GetEngine(name string) (Adapter, error) {
	h, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return h.adapter, nil
}

func (r *Registry) GetSession(name string) (*Session, error) {
	h, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return h.NewSession(), nil
}

func (r *Registry) GetConfigByName(name string) (config.ConnectionConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handles[name]
	if !ok {
		return config.ConnectionConfig{}, &apperrors.ConfigurationNotFoundError{Name: name}
	}
	return h.cfg, nil
}

// Names returns the registered connection names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Ping(ctx context.Context, name string) error {
	h, err := r.Get(name)
	if err != nil {
		return err
	}
	if err := h.adapter.Ping(ctx); err != nil {
		return apperrors.FromContext("ping "+name, fmt.Errorf("failed to ping %s: %w", name, err))
	}
	return nil
}

// CloseAll disposes every handle and empties the registry. A failing handle
// does not stop the others from being closed; all failures are returned.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		if err := r.handles[name].Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close connection %s: %w", name, err))
		}
	}
	r.handles = make(map[string]*Handle)

	if errs != nil {
		r.logger.Warn("some connections failed to close", zap.Error(errs))
	}
	return errs
}
