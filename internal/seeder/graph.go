package seeder

import (
	"github.com/Rana718/synthdb/internal/apperrors"
)

// DependencyGraph orders tables so that every table comes after the tables
// it references. Tables are visited in the order they were added, which keeps
// the result stable for the same input.
type DependencyGraph struct {
	tables []string
	deps   map[string][]string
	order  []string
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		deps: make(map[string][]string),
	}
}

// AddTable registers table with the tables it references. Dependencies on
// tables never added are ignored when the order is built.
func (g *DependencyGraph) AddTable(table string, dependencies ...string) {
	if _, ok := g.deps[table]; !ok {
		g.tables = append(g.tables, table)
	}
	g.deps[table] = append(g.deps[table], dependencies...)
}

func (g *DependencyGraph) BuildInsertionOrder() ([]string, error) {
	visited := make(map[string]bool)
	onStack := make(map[string]int)
	var stack []string
	var order []string

	var visit func(string) error
	visit = func(tableName string) error {
		if i, ok := onStack[tableName]; ok {
			cycle := append(append([]string(nil), stack[i:]...), tableName)
			return &apperrors.CyclicDependencyError{Tables: cycle}
		}
		if visited[tableName] {
			return nil
		}

		onStack[tableName] = len(stack)
		stack = append(stack, tableName)

		for _, dep := range g.deps[tableName] {
			if dep == tableName {
				continue // self-references do not affect ordering
			}
			if _, known := g.deps[dep]; !known {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, tableName)
		visited[tableName] = true
		order = append(order, tableName)
		return nil
	}

	for _, tableName := range g.tables {
		if !visited[tableName] {
			if err := visit(tableName); err != nil {
				return nil, err
			}
		}
	}

	g.order = order
	return order, nil
}

func (g *DependencyGraph) GetOrder() []string {
	return g.order
}
