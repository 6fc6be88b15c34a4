package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rana718/synthdb/internal/apperrors"
)

func TestParseGenerationResultKeepsOrder(t *testing.T) {
	raw := `{
		"departments": {"attributes": ["name"], "values": [["Bakery"], ["Dairy"]]},
		"products": {"attributes": ["name", "price", "department_id"], "values": [["Bread", 4.5, "$ref:departments:1"]]}
	}`

	result, err := ParseGenerationResult([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"departments", "products"}, result.Order)
	assert.Equal(t, 3, result.RowCount())

	price := result.Tables["products"].Values[0][1]
	assert.Equal(t, json.Number("4.5"), price)
}

func TestParseGenerationResultEmptyObject(t *testing.T) {
	result, err := ParseGenerationResult([]byte(" {} \n"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Len())
}

func TestParseGenerationResultRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":           "Here is your data: {",
		"empty":              "   ",
		"array":              `[{"a": 1}]`,
		"missing values":     `{"t": {"attributes": ["a"]}}`,
		"unknown field":      `{"t": {"attributes": ["a"], "values": [], "rows": 3}}`,
		"row length":         `{"t": {"attributes": ["a", "b"], "values": [[1]]}}`,
		"duplicate attr":     `{"t": {"attributes": ["a", "a"], "values": []}}`,
		"no attributes":      `{"t": {"attributes": [], "values": []}}`,
		"trailing":           `{"t": {"attributes": ["a"], "values": [[1]]}} {}`,
		"duplicate table":    `{"t": {"attributes": ["a"], "values": []}, "t": {"attributes": ["a"], "values": []}}`,
		"code fence":         "```json\n{}\n```",
		"values not matrix":  `{"t": {"attributes": ["a"], "values": [1, 2]}}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGenerationResult([]byte(raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrMalformedOutput)
		})
	}
}

func TestGenerationResultMarshalJSONOrder(t *testing.T) {
	result := NewGenerationResult()
	result.Set("zeta", &TableData{Attributes: []string{"a"}, Values: [][]any{{1}}})
	result.Set("alpha", &TableData{Attributes: []string{"b"}, Values: [][]any{}})

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":{"attributes":["a"],"values":[[1]]},"alpha":{"attributes":["b"],"values":[]}}`, string(data))

	var back GenerationResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"zeta", "alpha"}, back.Order)
}

func TestGenerationResultClone(t *testing.T) {
	result := NewGenerationResult()
	result.Set("t", &TableData{Attributes: []string{"a"}, Values: [][]any{{"x"}}})

	clone := result.Clone()
	clone.Tables["t"].Values[0][0] = "changed"
	clone.Set("u", &TableData{Attributes: []string{"b"}})

	assert.Equal(t, "x", result.Tables["t"].Values[0][0])
	assert.Equal(t, 1, result.Len())
}

func TestGenerationResultNames(t *testing.T) {
	result := &GenerationResult{
		Tables: map[string]*TableData{
			"orders":    {Attributes: []string{"a"}},
			"customers": {Attributes: []string{"b"}},
			"items":     {Attributes: []string{"c"}},
		},
		Order: []string{"orders", "ghost", "orders"},
	}
	assert.Equal(t, []string{"orders", "customers", "items"}, result.Names())
	assert.Equal(t, 3, result.Len())

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Equal(t, `{"orders":{"attributes":["a"],"values":null},"customers":{"attributes":["b"],"values":null},"items":{"attributes":["c"],"values":null}}`, string(data))

	var empty *GenerationResult
	assert.Empty(t, empty.Names())
}

func TestTableSchemaLookups(t *testing.T) {
	table := TableSchema{
		Name: "orders",
		Columns: []ColumnSchema{
			{Name: "id", IsPrimaryKey: true, IsAutoGenerated: true},
			{Name: "customer_id"},
		},
		ForeignKeys: []ForeignKey{{Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"}},
	}

	fk, ok := table.ForeignKeyFor("customer_id")
	require.True(t, ok)
	assert.Equal(t, "customers", fk.ReferencedTable)
	_, ok = table.ForeignKeyFor("id")
	assert.False(t, ok)
	assert.Equal(t, []string{"id"}, table.PrimaryKey())

	desc := SchemaDescription{Tables: []TableSchema{table}}
	_, ok = desc.Table("orders")
	assert.True(t, ok)
	assert.Equal(t, []string{"orders"}, desc.TableNames())
}

func TestParseReference(t *testing.T) {
	ref, ok, err := ParseReference("$ref:customers:3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Reference{Table: "customers", Row: 3}, ref)
	assert.Equal(t, "$ref:customers:3", ref.String())

	ref, ok, err = ParseReference(FormatReference("audit:log", 12))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "audit:log", ref.Table)
	assert.Equal(t, 12, ref.Row)

	for _, v := range []any{"plain text", "ref:customers:1", 42, nil, true} {
		_, ok, err := ParseReference(v)
		assert.NoError(t, err)
		assert.False(t, ok, "%v", v)
	}

	for _, v := range []string{"$ref:", "$ref:customers", "$ref:customers:", "$ref::1", "$ref:customers:0", "$ref:customers:x"} {
		_, ok, err := ParseReference(v)
		assert.True(t, ok, v)
		assert.Error(t, err, v)
	}
}
