package generator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/budget"
	"github.com/Rana718/synthdb/internal/config"
	"github.com/Rana718/synthdb/internal/llm"
	"github.com/Rana718/synthdb/internal/schema"
	"github.com/Rana718/synthdb/internal/types"
)

type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTimeout bounds a whole Generate call, schema extraction included.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

func WithLocale(locale string) Option {
	return func(o *Orchestrator) { o.locale = locale }
}

func WithRowsPerTable(n int) Option {
	return func(o *Orchestrator) { o.rows = n }
}

// WithInstructions replaces the built-in system instructions.
func WithInstructions(text string) Option {
	return func(o *Orchestrator) { o.instructions = text }
}

// WithJSONMode asks the service for a JSON object response format.
func WithJSONMode(enabled bool) Option {
	return func(o *Orchestrator) { o.jsonMode = enabled }
}

// WithHistory shares a history between orchestrators.
func WithHistory(h *History) Option {
	return func(o *Orchestrator) {
		if h != nil {
			o.history = h
		}
	}
}

// Orchestrator turns a prompt into a parsed GenerationResult. It never
// retries; a retry is a fresh Generate call with its own history entry.
type Orchestrator struct {
	schemas      schema.Source
	budget       *budget.Calculator
	service      llm.Service
	history      *History
	logger       *zap.Logger
	timeout      time.Duration
	locale       string
	rows         int
	instructions string
	jsonMode     bool
}

func New(schemas schema.Source, calc *budget.Calculator, service llm.Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		schemas: schemas,
		budget:  calc,
		service: service,
		history: NewHistory(),
		logger:  zap.NewNop(),
		locale:  config.DefaultLocale,
		rows:    config.DefaultRowsPerTable,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) History() *History {
	return o.history
}

// Instructions returns the system message sent with every request.
func (o *Orchestrator) Instructions() string {
	if o.instructions != "" {
		return o.instructions
	}
	return Instructions(o.rows, o.locale)
}

// Generate extracts the live schema, checks the token budget, calls the
// service and strictly decodes its answer. Budget failures return before
// the service is contacted.
func (o *Orchestrator) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResult, error) {
	entry, err := o.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return entry.Result, nil
}

// GenerateEntry is Generate returning the recorded history entry.
func (o *Orchestrator) GenerateEntry(ctx context.Context, req types.GenerationRequest) (Entry, error) {
	return o.generate(ctx, req)
}

func (o *Orchestrator) generate(ctx context.Context, req types.GenerationRequest) (Entry, error) {
	if req.ModelID == "" {
		req.ModelID = config.DefaultModel
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = config.DefaultMaxTokens
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	log := o.logger.With(zap.String("connection", req.ConnectionName), zap.String("model", req.ModelID))

	desc, err := o.schemas.ExtractSchema(ctx, req.ConnectionName)
	if err != nil {
		return Entry{}, err
	}
	schemaText := schema.Render(desc)
	instructions := o.Instructions()

	b, err := o.budget.Compute(instructions, schemaText, req.UserPrompt, req.MaxTokens, req.ModelID)
	if err != nil {
		log.Warn("token budget check failed", zap.Int("remaining", b.Remaining), zap.Error(err))
		return Entry{}, err
	}
	log.Debug("token budget",
		zap.Int("instructions", b.Instructions),
		zap.Int("schema", b.Schema),
		zap.Int("prompt", b.Prompt),
		zap.Int("remaining", b.Remaining))

	text, err := o.service.Complete(ctx, llm.CompletionRequest{
		Model: req.ModelID,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: instructions},
			{Role: llm.RoleSystem, Content: schemaText},
			{Role: llm.RoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   b.Remaining,
		Temperature: req.Temperature,
		JSONMode:    o.jsonMode,
	})
	if err != nil {
		return Entry{}, serviceError(err)
	}

	result, err := types.ParseGenerationResult([]byte(text))
	if err != nil {
		log.Warn("generation output rejected", zap.Error(err))
		return Entry{}, err
	}
	if err := checkTables(desc, result); err != nil {
		return Entry{}, err
	}

	entry := o.history.Append(Entry{
		Connection: req.ConnectionName,
		Model:      req.ModelID,
		Prompt:     req.UserPrompt,
		Raw:        text,
		Result:     result,
		MaxTokens:  b.Remaining,
	})
	log.Info("generation recorded",
		zap.String("key", entry.Key),
		zap.String("request_id", entry.RequestID),
		zap.Int("tables", result.Len()),
		zap.Int("rows", result.RowCount()))

	return entry, nil
}

func serviceError(err error) error {
	if apperrors.IsTimeout(err) {
		return apperrors.FromContext("generation request", err)
	}
	if errors.Is(err, apperrors.ErrGenerationService) {
		return err
	}
	return &apperrors.GenerationServiceError{Detail: err.Error(), Err: err}
}

// checkTables rejects tables the live schema does not have.
func checkTables(desc *types.SchemaDescription, result *types.GenerationResult) error {
	for _, name := range result.Names() {
		if _, ok := desc.Table(name); !ok {
			return &apperrors.UnknownTableError{Table: name, Suggestion: schema.Suggest(name, desc.TableNames())}
		}
	}
	return nil
}
