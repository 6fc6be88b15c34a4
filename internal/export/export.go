package export

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"

	"github.com/Rana718/synthdb/internal/database/common"
	"github.com/Rana718/synthdb/internal/types"
)

const (
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatJSON, FormatYAML, FormatCSV, FormatSQLite}

// PerformExport writes result to path in format and returns what was written:
// the file for json, yaml and sqlite, the directory for csv.
func PerformExport(result *types.GenerationResult, path, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return path, WriteJSON(path, result)
	case FormatYAML, "yml":
		return path, WriteYAML(path, result)
	case FormatCSV:
		return path, WriteCSV(path, result)
	case FormatSQLite:
		return path, WriteSQLite(path, result)
	default:
		return "", fmt.Errorf("unsupported export format %q (use %s)", format, strings.Join(Formats, ", "))
	}
}

func WriteJSON(path string, result *types.GenerationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	out.WriteByte('\n')
	return writeFile(path, out.Bytes())
}

func WriteYAML(path string, result *types.GenerationResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return writeFile(path, data)
}

// WriteCSV writes one <table>.csv per table into dir with the attributes as
// header. NULL becomes an empty field; nested values are written as JSON.
func WriteCSV(dir string, result *types.GenerationResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create CSV directory: %w", err)
	}

	for _, tableName := range result.Names() {
		table := result.Tables[tableName]
		if err := writeCSVTable(filepath.Join(dir, tableName+".csv"), table); err != nil {
			return fmt.Errorf("failed to write CSV for %s: %w", tableName, err)
		}
	}
	return nil
}

func writeCSVTable(path string, table *types.TableData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(table.Attributes); err != nil {
		return err
	}
	for _, row := range table.Values {
		values := make([]string, len(row))
		for i, v := range row {
			values[i], err = formatCell(v)
			if err != nil {
				return err
			}
		}
		if err := writer.Write(values); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

func formatCell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []any, map[string]any:
		out, err := json.Marshal(x)
		return string(out), err
	default:
		return fmt.Sprintf("%v", x), nil
	}
}

// WriteSQLite snapshots result into a fresh SQLite file with one TEXT column
// per attribute. Reference markers are kept as text.
func WriteSQLite(path string, result *types.GenerationResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to create SQLite database: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, tableName := range result.Names() {
		table := result.Tables[tableName]

		createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", common.QuoteDouble(tableName), buildColumnDefs(table.Attributes))
		if _, err := tx.Exec(createSQL); err != nil {
			return fmt.Errorf("failed to create table %s: %w", tableName, err)
		}

		insertSQL := buildInsertSQL(tableName, table.Attributes)
		for i, row := range table.Values {
			values := make([]any, len(row))
			for j, v := range row {
				if v == nil {
					continue
				}
				if values[j], err = formatCell(v); err != nil {
					return err
				}
			}
			if _, err := tx.Exec(insertSQL, values...); err != nil {
				return fmt.Errorf("failed to insert row %d into %s: %w", i+1, tableName, err)
			}
		}
	}
	return tx.Commit()
}

func buildColumnDefs(columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = common.QuoteDouble(col) + " TEXT"
	}
	return strings.Join(defs, ", ")
}

func buildInsertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = common.QuoteDouble(col)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		common.QuoteDouble(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// ReadResult loads a result written by WriteJSON or WriteYAML. Both go
// through the same strict decoding as generated output.
func ReadResult(path string) (*types.GenerationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return types.ParseGenerationResult(data)
}

// yamlToJSON accepts the sequence form WriteYAML produces as well as a plain
// table mapping, and re-encodes it as a JSON object in document order.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return []byte("{}"), nil
	}

	root := doc.Content[0]
	var pairs []*yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		for _, item := range root.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: expected a table mapping", item.Line)
			}
			pairs = append(pairs, item.Content...)
		}
	case yaml.MappingNode:
		pairs = root.Content
	default:
		return nil, fmt.Errorf("line %d: expected a sequence or mapping of tables", root.Line)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pairs[i].Value)
		if err != nil {
			return nil, err
		}
		var table any
		if err := pairs[i+1].Decode(&table); err != nil {
			return nil, err
		}
		val, err := json.Marshal(table)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", pairs[i].Value, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
