package export

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/types"
)

const sample = `{
	"orders": {"attributes": ["customer_id", "total", "meta"], "values": [["$ref:customers:1", 10.5, {"gift": true}], ["$ref:customers:2", 3, null]]},
	"customers": {"attributes": ["name"], "values": [["Ana"], ["Bruno"]]}
}`

func sampleResult(t *testing.T) *types.GenerationResult {
	t.Helper()
	result, err := types.ParseGenerationResult([]byte(sample))
	require.NoError(t, err)
	return result
}

func TestJSONRoundTripKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.json")
	require.NoError(t, WriteJSON(path, sampleResult(t)))

	back, err := ReadResult(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "customers"}, back.Order)
	assert.Equal(t, "$ref:customers:2", back.Tables["orders"].Values[1][0])
}

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.yaml")
	require.NoError(t, WriteYAML(path, sampleResult(t)))

	back, err := ReadResult(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "customers"}, back.Order)
	assert.Equal(t, []string{"customer_id", "total", "meta"}, back.Tables["orders"].Attributes)
	assert.Equal(t, "Bruno", back.Tables["customers"].Values[1][0])
	assert.Nil(t, back.Tables["orders"].Values[1][2])
	assert.Equal(t, json.Number("10.5"), back.Tables["orders"].Values[0][1])
	assert.Equal(t, map[string]any{"gift": true}, back.Tables["orders"].Values[0][2])
}

func TestReadResultYAMLMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hand.yml")
	require.NoError(t, os.WriteFile(path, []byte("customers:\n  attributes: [name]\n  values:\n    - [Ana]\n"), 0644))

	back, err := ReadResult(path)
	require.NoError(t, err)
	assert.Equal(t, 1, back.RowCount())
}

func TestReadResultRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"customers": {"attributes": ["name"], "values": [["Ana", "extra"]]}}`), 0644))

	_, err := ReadResult(path)
	assert.ErrorIs(t, err, apperrors.ErrMalformedOutput)

	_, err = ReadResult(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "csv")
	path, err := PerformExport(sampleResult(t), dir, "csv")
	require.NoError(t, err)
	assert.Equal(t, dir, path)

	f, err := os.Open(filepath.Join(dir, "orders.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"customer_id", "total", "meta"},
		{"$ref:customers:1", "10.5", `{"gift":true}`},
		{"$ref:customers:2", "3", ""},
	}, records)

	_, err = os.Stat(filepath.Join(dir, "customers.csv"))
	assert.NoError(t, err)
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	_, err := PerformExport(sampleResult(t), path, "sqlite")
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "orders" WHERE "meta" IS NULL`).Scan(&n))
	assert.Equal(t, 1, n)

	var name string
	require.NoError(t, db.QueryRow(`SELECT "name" FROM "customers" WHERE rowid = 2`).Scan(&name))
	assert.Equal(t, "Bruno", name)
}

func TestPerformExportUnknownFormat(t *testing.T) {
	_, err := PerformExport(sampleResult(t), t.TempDir(), "xml")
	assert.Error(t, err)
}
