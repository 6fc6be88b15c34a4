package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/Rana718/synthdb/internal/budget"
	"github.com/Rana718/synthdb/internal/config"
	"github.com/Rana718/synthdb/internal/database"
	"github.com/Rana718/synthdb/internal/generator"
	"github.com/Rana718/synthdb/internal/llm"
	"github.com/Rana718/synthdb/internal/schema"
	"github.com/Rana718/synthdb/internal/seeder"
	"github.com/Rana718/synthdb/internal/tokenizer"
	"github.com/Rana718/synthdb/internal/types"
)

// fallbackEncoding counts tokens for models served from a custom base URL.
const fallbackEncoding = "cl100k_base"

// app wires the registry and the components built on it for one command run.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *database.Registry
	schemas  *schema.Extractor
	// failures holds the validation error of each connection that could not be registered.
	failures map[string]error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger()
	registry := database.NewRegistry(
		database.WithAllowedDialects(cfg.Dialects...),
		database.WithLogger(logger),
	)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		schemas:  schema.NewExtractor(registry, schema.WithLogger(logger)),
		failures: make(map[string]error),
	}

	for _, conn := range cfg.Connections {
		if _, err := registry.AddConnection(ctx, conn); err != nil {
			a.failures[conn.Name] = err
			logger.Debug("connection skipped", zap.String("connection", conn.Name), zap.Error(err))
		}
	}
	return a, nil
}

// connection reports why name is unusable, preferring the validation error
// over a plain not-found.
func (a *app) connection(name string) error {
	if err, ok := a.failures[name]; ok {
		return err
	}
	_, err := a.registry.Get(name)
	return err
}

func (a *app) budget() *budget.Calculator {
	var opts []tokenizer.Option
	if a.cfg.Generation.BaseURL != "" {
		opts = append(opts, tokenizer.WithFallbackEncoding(fallbackEncoding))
	}
	return budget.NewCalculator(tokenizer.New(opts...))
}

func (a *app) orchestrator(rows int) (*generator.Orchestrator, error) {
	key, err := a.cfg.GetAPIKey()
	if err != nil {
		return nil, err
	}

	gen := a.cfg.Generation
	clientOpts := []llm.Option{llm.WithLogger(a.logger)}
	if gen.BaseURL != "" {
		clientOpts = append(clientOpts, llm.WithBaseURL(gen.BaseURL))
	}

	if rows <= 0 {
		rows = gen.RowsPerTable
	}
	return generator.New(a.schemas, a.budget(), llm.NewOpenAIClient(key, clientOpts...),
		generator.WithLogger(a.logger),
		generator.WithTimeout(gen.Timeout),
		generator.WithLocale(gen.Locale),
		generator.WithRowsPerTable(rows),
		generator.WithJSONMode(gen.JSONMode),
	), nil
}

func (a *app) engine() *seeder.Engine {
	return seeder.NewEngine(a.registry, a.schemas,
		seeder.WithLogger(a.logger),
		seeder.WithTimeout(a.cfg.Insert.Timeout),
	)
}

func (a *app) request(connection, prompt string) types.GenerationRequest {
	return types.GenerationRequest{
		ConnectionName: connection,
		UserPrompt:     prompt,
		ModelID:        a.cfg.Generation.Model,
		MaxTokens:      a.cfg.Generation.MaxTokens,
		Temperature:    a.cfg.Generation.Temperature,
	}
}

// synthesize builds a result offline from the live schema.
func (a *app) synthesize(ctx context.Context, connection string, rows int, seed int64, tables []string) (*types.GenerationResult, error) {
	desc, err := a.schemas.ExtractSchema(ctx, connection)
	if err != nil {
		return nil, err
	}
	if rows <= 0 {
		rows = a.cfg.Generation.RowsPerTable
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return seeder.NewDataGenerator(seed).Synthesize(desc, rows, tables...)
}

func (a *app) close() {
	if err := a.registry.CloseAll(); err != nil {
		color.Yellow("⚠️  %v", err)
	}
	a.logger.Sync()
}
