package generator

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rana718/synthdb/internal/types"
)

// Entry is one successful generation. Entries are never modified after they
// are appended; accessors hand out copies.
type Entry struct {
	Key        string                  `json:"key"`
	RequestID  string                  `json:"request_id"`
	Connection string                  `json:"connection"`
	Model      string                  `json:"model"`
	Prompt     string                  `json:"prompt"`
	Raw        string                  `json:"raw"`
	Result     *types.GenerationResult `json:"result"`
	MaxTokens  int                     `json:"max_tokens"`
	CreatedAt  time.Time               `json:"created_at"`
}

func (e Entry) clone() Entry {
	e.Result = e.Result.Clone()
	return e
}

// History is an append-only log keyed gen1, gen2, ... in insertion order.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

func NewHistory() *History {
	return &History{index: make(map[string]int)}
}

// Append assigns the next key and a request id and stores a copy of e.
func (h *History) Append(e Entry) Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	e.Key = fmt.Sprintf("gen%d", len(h.entries)+1)
	if e.RequestID == "" {
		e.RequestID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	stored := e.clone()
	h.index[stored.Key] = len(h.entries)
	h.entries = append(h.entries, stored)
	return stored.clone()
}

func (h *History) Get(key string) (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	i, ok := h.index[key]
	if !ok {
		return Entry{}, false
	}
	return h.entries[i].clone(), true
}

func (h *History) Last() (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1].clone(), true
}

// Entries returns every entry in insertion order.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.clone()
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
