package budget

import (
	"fmt"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/tokenizer"
)

const (
	// Overhead covers the per-message framing the chat format adds.
	Overhead = 40
	// MinResponse is the smallest response ceiling worth sending a request for.
	MinResponse = 1000
)

// Breakdown itemises a budget computation.
type Breakdown struct {
	Instructions int
	Schema       int
	Prompt       int
	Overhead     int
	MaxTokens    int
	Remaining    int
}

// Used is the number of tokens consumed before the response.
func (b Breakdown) Used() int {
	return b.Instructions + b.Schema + b.Prompt + b.Overhead
}

type Calculator struct {
	counter     tokenizer.Counter
	overhead    int
	minResponse int
}

type Option func(*Calculator)

func WithOverhead(n int) Option {
	return func(c *Calculator) { c.overhead = n }
}

func WithMinResponse(n int) Option {
	return func(c *Calculator) { c.minResponse = n }
}

func NewCalculator(counter tokenizer.Counter, opts ...Option) *Calculator {
	c := &Calculator{counter: counter, overhead: Overhead, minResponse: MinResponse}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) MinResponse() int { return c.minResponse }

// Compute returns maxTokens minus the three texts and the overhead. When the
// remainder is below the response floor the breakdown is still returned
// alongside a BudgetExceededError.
func (c *Calculator) Compute(instructions, schemaText, prompt string, maxTokens int, model string) (Breakdown, error) {
	b := Breakdown{Overhead: c.overhead, MaxTokens: maxTokens}

	var err error
	if b.Instructions, err = c.count(instructions, model, "instructions"); err != nil {
		return b, err
	}
	if b.Schema, err = c.count(schemaText, model, "schema"); err != nil {
		return b, err
	}
	if b.Prompt, err = c.count(prompt, model, "prompt"); err != nil {
		return b, err
	}

	b.Remaining = maxTokens - b.Used()
	if b.Remaining < c.minResponse {
		return b, &apperrors.BudgetExceededError{Remaining: b.Remaining, Floor: c.minResponse}
	}
	return b, nil
}

// Remaining is Compute without the breakdown.
func (c *Calculator) Remaining(instructions, schemaText, prompt string, maxTokens int, model string) (int, error) {
	b, err := c.Compute(instructions, schemaText, prompt, maxTokens, model)
	return b.Remaining, err
}

func (c *Calculator) count(text, model, what string) (int, error) {
	n, err := c.counter.CountTokens(text, model)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s tokens: %w", what, err)
	}
	return n, nil
}
