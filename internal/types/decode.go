package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Rana718/synthdb/internal/apperrors"
)

// ParseGenerationResult strictly decodes {table: {attributes: [...], values: [[...]]}}.
// Numbers are kept as json.Number. Shape mismatches are reported as
// MalformedOutputError; nothing is coerced.
func ParseGenerationResult(data []byte) (*GenerationResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &apperrors.MalformedOutputError{Reason: "empty output"}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &apperrors.MalformedOutputError{Reason: "invalid JSON", Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &apperrors.MalformedOutputError{Reason: "top-level value must be an object"}
	}

	result := NewGenerationResult()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &apperrors.MalformedOutputError{Reason: "invalid JSON", Err: err}
		}
		name, _ := keyTok.(string)
		if name == "" {
			return nil, &apperrors.MalformedOutputError{Reason: "empty table name"}
		}
		if _, dup := result.Tables[name]; dup {
			return nil, &apperrors.MalformedOutputError{Reason: fmt.Sprintf("table %q appears twice", name)}
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &apperrors.MalformedOutputError{Reason: fmt.Sprintf("invalid JSON for table %q", name), Err: err}
		}

		table, err := decodeTable(name, raw)
		if err != nil {
			return nil, err
		}
		result.Set(name, table)
	}

	if _, err := dec.Token(); err != nil {
		return nil, &apperrors.MalformedOutputError{Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &apperrors.MalformedOutputError{Reason: "trailing data after JSON object"}
	}

	return result, nil
}

func decodeTable(name string, raw json.RawMessage) (*TableData, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var payload struct {
		Attributes *[]string `json:"attributes"`
		Values     *[][]any  `json:"values"`
	}
	if err := dec.Decode(&payload); err != nil {
		return nil, &apperrors.MalformedOutputError{Reason: fmt.Sprintf("table %q does not match {attributes, values}", name), Err: err}
	}
	if payload.Attributes == nil || payload.Values == nil {
		return nil, &apperrors.MalformedOutputError{Reason: fmt.Sprintf("table %q must have both attributes and values", name)}
	}

	attrs := *payload.Attributes
	if len(attrs) == 0 {
		return nil, &apperrors.MalformedOutputError{Reason: fmt.Sprintf("table %q has no attributes", name)}
	}
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if a == "" {
			return nil, &apperrors.MalformedOutputError{Reason: fmt.Sprintf("table %q has an empty attribute name", name)}
		}
		if seen[a] {
			return nil, &apperrors.MalformedOutputError{Reason: fmt.Sprintf("table %q repeats attribute %q", name, a)}
		}
		seen[a] = true
	}

	values := *payload.Values
	for i, row := range values {
		if len(row) != len(attrs) {
			return nil, &apperrors.MalformedOutputError{
				Reason: fmt.Sprintf("table %q row %d has %d values for %d attributes", name, i+1, len(row), len(attrs)),
			}
		}
	}

	return &TableData{Attributes: attrs, Values: values}, nil
}

func (r *GenerationResult) UnmarshalJSON(data []byte) error {
	parsed, err := ParseGenerationResult(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}
