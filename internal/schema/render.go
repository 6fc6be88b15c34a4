package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Rana718/synthdb/internal/types"
)

// Render produces the DDL-like text sent to the generation service. The
// output depends only on desc, so equal schemas cost equal tokens.
func Render(desc *types.SchemaDescription) string {
	var b strings.Builder

	if desc.Dialect != "" {
		fmt.Fprintf(&b, "-- dialect: %s\n", desc.Dialect)
	}
	if len(desc.Tables) == 0 {
		b.WriteString("-- no tables\n")
		return b.String()
	}

	for i, table := range desc.Tables {
		if i > 0 {
			b.WriteByte('\n')
		}
		renderTable(&b, table)
	}
	return b.String()
}

func renderTable(b *strings.Builder, table types.TableSchema) {
	fmt.Fprintf(b, "CREATE TABLE %s (\n", table.Name)

	pk := table.PrimaryKey()
	lines := make([]string, 0, len(table.Columns)+len(table.ForeignKeys)+1)
	for _, col := range table.Columns {
		lines = append(lines, "  "+renderColumn(col, len(pk) == 1))
	}

	if len(pk) > 1 {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}
	for _, fk := range table.ForeignKeys {
		lines = append(lines, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s (%s)", fk.Column, fk.ReferencedTable, fk.ReferencedColumn))
	}

	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n);\n")

	for _, col := range table.Columns {
		if col.IsAutoGenerated {
			fmt.Fprintf(b, "-- %s.%s is auto-generated\n", table.Name, col.Name)
		}
	}
}

func renderColumn(col types.ColumnSchema, inlinePK bool) string {
	parts := []string{col.Name}
	if col.Type != "" {
		parts = append(parts, col.Type)
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.IsPrimaryKey && inlinePK {
		parts = append(parts, "PRIMARY KEY")
	}
	if col.DefaultValue != nil {
		parts = append(parts, "DEFAULT "+*col.DefaultValue)
	}
	return strings.Join(parts, " ")
}

// RenderYAML is the machine-readable form used by the CLI.
func RenderYAML(desc *types.SchemaDescription) ([]byte, error) {
	out, err := yaml.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
