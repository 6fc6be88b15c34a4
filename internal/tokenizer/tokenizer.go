package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/Rana718/synthdb/internal/apperrors"
)

func init() {
	// BPE ranks ship with the binary; counting never touches the network.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter counts tokens of text as the given model would see them.
type Counter interface {
	CountTokens(text, model string) (int, error)
}

type Option func(*Tiktoken)

// WithFallbackEncoding makes models tiktoken does not know (self-hosted or
// OpenAI-compatible endpoints) count with the named encoding, e.g. "cl100k_base".
func WithFallbackEncoding(encoding string) Option {
	return func(t *Tiktoken) { t.fallback = encoding }
}

// Tiktoken is a Counter backed by tiktoken-go. Encodings are cached per model.
type Tiktoken struct {
	mu       sync.Mutex
	cache    map[string]*tiktoken.Tiktoken
	fallback string
}

func New(opts ...Option) *Tiktoken {
	t := &Tiktoken{cache: make(map[string]*tiktoken.Tiktoken)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tiktoken) CountTokens(text, model string) (int, error) {
	enc, err := t.encoding(model)
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, nil
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (t *Tiktoken) encoding(model string) (*tiktoken.Tiktoken, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enc, ok := t.cache[model]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		if t.fallback == "" {
			return nil, &apperrors.UnsupportedModelError{Model: model, Err: err}
		}
		enc, err = tiktoken.GetEncoding(t.fallback)
		if err != nil {
			return nil, &apperrors.UnsupportedModelError{Model: model, Err: err}
		}
	}
	t.cache[model] = enc
	return enc, nil
}
