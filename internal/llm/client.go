package llm

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Rana718/synthdb/internal/apperrors"
)

const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

type Message struct {
	Role    string
	Content string
}

type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// JSONMode asks the service to constrain output to a JSON object.
	JSONMode bool
}

// Service is the text generation capability: messages in, text out.
type Service interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// OpenAIClient implements Service with the chat completions API.
type OpenAIClient struct {
	client *openai.Client
	logger *zap.Logger
}

func NewOpenAIClient(apiKey string, opts ...Option) *OpenAIClient {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}

	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), logger: o.logger}
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	temperature := float32(req.Temperature)
	if temperature == 0 {
		// a zero value is dropped from the request body and the server default applies
		temperature = math.SmallestNonzeroFloat32
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &apperrors.GenerationServiceError{Detail: "response contained no choices"}
	}

	choice := resp.Choices[0]
	c.logger.Debug("completion received",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Duration("took", time.Since(start)))
	if choice.FinishReason == openai.FinishReasonLength {
		c.logger.Warn("completion hit the token ceiling, output is likely truncated",
			zap.Int("max_tokens", req.MaxTokens))
	}

	return choice.Message.Content, nil
}

func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &apperrors.TimeoutError{Op: "generation request", Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &apperrors.GenerationServiceError{Status: apiErr.HTTPStatusCode, Detail: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			detail = reqErr.Err.Error()
		}
		return &apperrors.GenerationServiceError{Status: reqErr.HTTPStatusCode, Detail: detail, Err: err}
	}
	return &apperrors.GenerationServiceError{Detail: err.Error(), Err: err}
}
