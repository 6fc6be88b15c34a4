package seeder

import (
	"github.com/Rana718/synthdb/internal/types"
)

// TableInfo is one table of a batch checked against the live schema.
type TableInfo struct {
	Name   string
	Schema *types.TableSchema
	Data   *types.TableData

	// ForeignKeys maps an attribute to the foreign key declared on it.
	ForeignKeys map[string]*types.ForeignKey
	// Dependencies are the other batch tables this one references, in
	// foreign key order.
	Dependencies []string
	// Capture lists columns that are not supplied by the batch but whose
	// persisted values other rows reference.
	Capture []string
}

// batch is a validated GenerationResult ready for insertion.
type batch struct {
	dialect string
	tables  map[string]*TableInfo
	order   []string
}

// persistedRow holds the values a row was stored with, keyed by column.
type persistedRow map[string]any
