package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type ColumnSchema struct {
	Name            string  `json:"name" yaml:"name"`
	Type            string  `json:"type" yaml:"type"`
	Nullable        bool    `json:"nullable" yaml:"nullable"`
	IsPrimaryKey    bool    `json:"is_primary_key" yaml:"is_primary_key"`
	IsAutoGenerated bool    `json:"is_auto_generated" yaml:"is_auto_generated"`
	DefaultValue    *string `json:"default_value,omitempty" yaml:"default_value,omitempty"`
}

type ForeignKey struct {
	Column           string `json:"column" yaml:"column"`
	ReferencedTable  string `json:"referenced_table" yaml:"referenced_table"`
	ReferencedColumn string `json:"referenced_column" yaml:"referenced_column"`
}

type TableSchema struct {
	Name        string         `json:"name" yaml:"name"`
	Columns     []ColumnSchema `json:"columns" yaml:"columns"`
	ForeignKeys []ForeignKey   `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
}

func (t *TableSchema) Column(name string) (*ColumnSchema, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ForeignKeyFor returns the foreign key declared on column, if any.
func (t *TableSchema) ForeignKeyFor(column string) (*ForeignKey, bool) {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].Column == column {
			return &t.ForeignKeys[i], true
		}
	}
	return nil, false
}

func (t *TableSchema) PrimaryKey() []string {
	var pk []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// SchemaDescription is ordered: tables by name, columns in declaration order.
type SchemaDescription struct {
	Connection string        `json:"connection" yaml:"connection"`
	Dialect    string        `json:"dialect" yaml:"dialect"`
	Tables     []TableSchema `json:"tables" yaml:"tables"`
}

func (s *SchemaDescription) Table(name string) (*TableSchema, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

func (s *SchemaDescription) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

type GenerationRequest struct {
	ConnectionName string  `json:"connection_name"`
	UserPrompt     string  `json:"user_prompt"`
	ModelID        string  `json:"model_id"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
}

// TableData is the generated payload for one table.
type TableData struct {
	Attributes []string `json:"attributes" yaml:"attributes"`
	Values     [][]any  `json:"values" yaml:"values"`
}

// GenerationResult maps table names to generated rows and remembers the
// order in which the tables appeared in the generated document.
type GenerationResult struct {
	Tables map[string]*TableData
	Order  []string
}

func NewGenerationResult() *GenerationResult {
	return &GenerationResult{Tables: make(map[string]*TableData)}
}

// Set adds or replaces a table, keeping its original position on replace.
func (r *GenerationResult) Set(name string, data *TableData) {
	if r.Tables == nil {
		r.Tables = make(map[string]*TableData)
	}
	if _, exists := r.Tables[name]; !exists {
		r.Order = append(r.Order, name)
	}
	r.Tables[name] = data
}

// Names lists every table once: the Order entries present in Tables, then
// any keys missing from Order in sorted order.
func (r *GenerationResult) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Tables))
	listed := make(map[string]bool, len(r.Tables))
	for _, name := range r.Order {
		if _, ok := r.Tables[name]; ok && !listed[name] {
			listed[name] = true
			names = append(names, name)
		}
	}
	var rest []string
	for name := range r.Tables {
		if !listed[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func (r *GenerationResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Tables)
}

func (r *GenerationResult) RowCount() int {
	total := 0
	for _, t := range r.Tables {
		if t != nil {
			total += len(t.Values)
		}
	}
	return total
}

// Clone returns a deep copy. Row values are copied one level deep.
func (r *GenerationResult) Clone() *GenerationResult {
	if r == nil {
		return nil
	}
	out := NewGenerationResult()
	for _, name := range r.Names() {
		src := r.Tables[name]
		if src == nil {
			out.Set(name, nil)
			continue
		}
		dst := &TableData{
			Attributes: append([]string(nil), src.Attributes...),
			Values:     make([][]any, len(src.Values)),
		}
		for i, row := range src.Values {
			dst.Values[i] = append([]any(nil), row...)
		}
		out.Set(name, dst)
	}
	return out
}

func (r *GenerationResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Tables[name])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal table %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML keeps table order by emitting a sequence of single-key maps.
// JSON numbers are written as YAML numbers rather than quoted strings.
func (r *GenerationResult) MarshalYAML() (interface{}, error) {
	names := r.Names()
	out := make([]map[string]*TableData, 0, len(names))
	for _, name := range names {
		src := r.Tables[name]
		if src == nil {
			out = append(out, map[string]*TableData{name: nil})
			continue
		}
		dst := &TableData{Attributes: src.Attributes, Values: make([][]any, len(src.Values))}
		for i, row := range src.Values {
			dst.Values[i] = make([]any, len(row))
			for j, v := range row {
				dst.Values[i][j] = yamlValue(v)
			}
		}
		out = append(out, map[string]*TableData{name: dst})
	}
	return out, nil
}

func yamlValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = yamlValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = yamlValue(e)
		}
		return out
	default:
		return v
	}
}

// InsertionPlan lists tables so that referenced tables come before the tables referencing them.
type InsertionPlan struct {
	Order []string `json:"order"`
}

type InsertionOutcome struct {
	Connection string         `json:"connection"`
	Order      []string       `json:"order"`
	Counts     map[string]int `json:"counts"`
	Duration   time.Duration  `json:"duration"`
}

func (o *InsertionOutcome) Total() int {
	total := 0
	for _, n := range o.Counts {
		total += n
	}
	return total
}
