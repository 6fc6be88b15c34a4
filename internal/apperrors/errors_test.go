package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"invalid configuration", &InvalidConfigurationError{Name: "db", Missing: []string{"host"}}, ErrInvalidConfiguration},
		{"connection not found", &ConnectionNotFoundError{Name: "db"}, ErrConnectionNotFound},
		{"configuration not found", &ConfigurationNotFoundError{Name: "db"}, ErrConfigurationNotFound},
		{"schema extraction", &SchemaExtractionError{Connection: "db", Err: cause}, ErrSchemaExtraction},
		{"budget", &BudgetExceededError{Remaining: 10, Floor: 1000}, ErrBudgetExceeded},
		{"service", &GenerationServiceError{Status: 500, Detail: "x"}, ErrGenerationService},
		{"malformed", &MalformedOutputError{Reason: "x"}, ErrMalformedOutput},
		{"unknown table", &UnknownTableError{Table: "x"}, ErrUnknownTable},
		{"unknown column", &UnknownColumnError{Table: "x", Column: "y"}, ErrUnknownColumn},
		{"cycle", &CyclicDependencyError{Tables: []string{"a", "b", "a"}}, ErrCyclicDependency},
		{"unresolved", &UnresolvedReferenceError{Table: "a", Column: "b", Value: "$ref:c:1"}, ErrUnresolvedReference},
		{"timeout", &TimeoutError{Op: "insert", Err: context.DeadlineExceeded}, ErrTimeout},
		{"model", &UnsupportedModelError{Model: "m", Err: cause}, ErrUnsupportedModel},
		{"insert", &InsertFailedError{Table: "a", Row: 7, Err: cause}, ErrInsertFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestInvalidConfigurationFields(t *testing.T) {
	err := &InvalidConfigurationError{Name: "main", Missing: []string{"host", "port"}, Invalid: []string{"dialect"}}
	assert.Equal(t, []string{"host", "port", "dialect"}, err.Fields())
	assert.Contains(t, err.Error(), "missing or empty: host, port")
	assert.Contains(t, err.Error(), "invalid: dialect")
}

func TestFromContext(t *testing.T) {
	require.NoError(t, FromContext("op", nil))

	plain := errors.New("plain")
	assert.Same(t, plain, FromContext("op", plain))

	err := FromContext("insert", fmt.Errorf("exec: %w", context.DeadlineExceeded))
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "insert", te.Op)
	assert.True(t, IsTimeout(err))

	// already converted errors are not double wrapped
	again := FromContext("outer", err)
	assert.Same(t, err, again)
}

func TestInsertFailedUnwrap(t *testing.T) {
	cause := errors.New("constraint failed")
	err := &InsertFailedError{Table: "orders", Row: 7, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "row 7 of table orders")
}
