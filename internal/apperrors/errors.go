package apperrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidConfiguration  = errors.New("invalid configuration")
	ErrConnectionNotFound    = errors.New("connection not found")
	ErrConfigurationNotFound = errors.New("configuration not found")
	ErrSchemaExtraction      = errors.New("schema extraction failed")
	ErrBudgetExceeded        = errors.New("token budget exceeded")
	ErrGenerationService     = errors.New("generation service error")
	ErrMalformedOutput       = errors.New("malformed generation output")
	ErrUnknownTable          = errors.New("unknown table")
	ErrUnknownColumn         = errors.New("unknown column")
	ErrCyclicDependency      = errors.New("cyclic dependency")
	ErrUnresolvedReference   = errors.New("unresolved reference")
	ErrTimeout               = errors.New("operation timed out")
	ErrUnsupportedModel      = errors.New("unsupported model")
	ErrInsertFailed          = errors.New("insert failed")
)

// InvalidConfigurationError lists the missing fields first, then the invalid ones.
type InvalidConfigurationError struct {
	Name    string
	Missing []string
	Invalid []string
	Detail  string
}

func (e *InvalidConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing or empty: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.Invalid, ", "))
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	name := e.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("invalid configuration for connection %q: %s", name, strings.Join(parts, "; "))
}

func (e *InvalidConfigurationError) Is(err error) bool { return err == ErrInvalidConfiguration }

// Fields returns every offending field name.
func (e *InvalidConfigurationError) Fields() []string {
	out := make([]string, 0, len(e.Missing)+len(e.Invalid))
	out = append(out, e.Missing...)
	return append(out, e.Invalid...)
}

type ConnectionNotFoundError struct {
	Name string
}

func (e *ConnectionNotFoundError) Error() string {
	return fmt.Sprintf("connection %q not found", e.Name)
}

func (e *ConnectionNotFoundError) Is(err error) bool { return err == ErrConnectionNotFound }

type ConfigurationNotFoundError struct {
	Name string
}

func (e *ConfigurationNotFoundError) Error() string {
	return fmt.Sprintf("configuration %q not found", e.Name)
}

func (e *ConfigurationNotFoundError) Is(err error) bool { return err == ErrConfigurationNotFound }

type SchemaExtractionError struct {
	Connection string
	Err        error
}

func (e *SchemaExtractionError) Error() string {
	return fmt.Sprintf("failed to extract schema for connection %q: %v", e.Connection, e.Err)
}

func (e *SchemaExtractionError) Is(err error) bool { return err == ErrSchemaExtraction }
func (e *SchemaExtractionError) Unwrap() error     { return e.Err }

// BudgetExceededError reports the remaining response budget that fell below Floor.
type BudgetExceededError struct {
	Remaining int
	Floor     int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("remaining response budget %d is below the minimum of %d tokens", e.Remaining, e.Floor)
}

func (e *BudgetExceededError) Is(err error) bool { return err == ErrBudgetExceeded }

// GenerationServiceError carries the HTTP status of the remote service when known (0 otherwise).
type GenerationServiceError struct {
	Status int
	Detail string
	Err    error
}

func (e *GenerationServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("generation service error (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("generation service error: %s", e.Detail)
}

func (e *GenerationServiceError) Is(err error) bool { return err == ErrGenerationService }
func (e *GenerationServiceError) Unwrap() error     { return e.Err }

type MalformedOutputError struct {
	Reason string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed generation output: %s: %v", e.Reason, e.Err)
	}
	return "malformed generation output: " + e.Reason
}

func (e *MalformedOutputError) Is(err error) bool { return err == ErrMalformedOutput }
func (e *MalformedOutputError) Unwrap() error     { return e.Err }

type UnknownTableError struct {
	Table      string
	Suggestion string
}

func (e *UnknownTableError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown table %q (did you mean %q?)", e.Table, e.Suggestion)
	}
	return fmt.Sprintf("unknown table %q", e.Table)
}

func (e *UnknownTableError) Is(err error) bool { return err == ErrUnknownTable }

type UnknownColumnError struct {
	Table  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q in table %q", e.Column, e.Table)
}

func (e *UnknownColumnError) Is(err error) bool { return err == ErrUnknownColumn }

// CyclicDependencyError lists the tables of the cycle in traversal order.
type CyclicDependencyError struct {
	Tables []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic dependency between tables: " + strings.Join(e.Tables, " -> ")
}

func (e *CyclicDependencyError) Is(err error) bool { return err == ErrCyclicDependency }

type UnresolvedReferenceError struct {
	Table  string
	Column string
	Value  any
	Reason string
}

func (e *UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("unresolved reference %v in %s.%s", e.Value, e.Table, e.Column)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnresolvedReferenceError) Is(err error) bool { return err == ErrUnresolvedReference }

type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Is(err error) bool { return err == ErrTimeout }
func (e *TimeoutError) Unwrap() error     { return e.Err }

type UnsupportedModelError struct {
	Model string
	Err   error
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model %q: %v", e.Model, e.Err)
}

func (e *UnsupportedModelError) Is(err error) bool { return err == ErrUnsupportedModel }
func (e *UnsupportedModelError) Unwrap() error     { return e.Err }

// InsertFailedError is returned after the whole batch was rolled back.
// Row is 1-based; 0 means the failure was not tied to a row.
type InsertFailedError struct {
	Table string
	Row   int
	Err   error
}

func (e *InsertFailedError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("failed to insert row %d of table %s: %v", e.Row, e.Table, e.Err)
	}
	return fmt.Sprintf("failed to insert into table %s: %v", e.Table, e.Err)
}

func (e *InsertFailedError) Is(err error) bool { return err == ErrInsertFailed }
func (e *InsertFailedError) Unwrap() error     { return e.Err }

// FromContext converts a context deadline into a TimeoutError and leaves other errors alone.
func FromContext(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return &TimeoutError{Op: op, Err: err}
	}
	return err
}

// IsTimeout reports whether err is, or wraps, a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
