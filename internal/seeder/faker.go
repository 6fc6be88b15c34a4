package seeder

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/schema"
	"github.com/Rana718/synthdb/internal/types"
)

// DataGenerator fills tables with placeholder values from column names and
// types. It is the offline stand-in for the generation service.
type DataGenerator struct {
	rand    *rand.Rand
	counter int
	now     time.Time
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rand: rand.New(rand.NewSource(seed)),
		now:  time.Now().UTC().Truncate(24 * time.Hour),
	}
}

// Synthesize builds a GenerationResult with rows rows for each requested
// table and every table they reference. Foreign keys between generated tables
// are written as reference markers. No tables means every table of desc.
func (g *DataGenerator) Synthesize(desc *types.SchemaDescription, rows int, tables ...string) (*types.GenerationResult, error) {
	selected, err := closure(desc, tables)
	if err != nil {
		return nil, err
	}

	attributes := make(map[string][]string)
	for _, t := range desc.Tables {
		if !selected[t.Name] {
			continue
		}
		for _, c := range t.Columns {
			if !c.IsAutoGenerated {
				attributes[t.Name] = append(attributes[t.Name], c.Name)
			}
		}
	}

	result := types.NewGenerationResult()
	for _, t := range desc.Tables {
		// Tables with only auto-generated columns cannot be written as rows.
		if len(attributes[t.Name]) == 0 {
			continue
		}
		data := &types.TableData{Attributes: attributes[t.Name]}

		for i := 1; i <= rows; i++ {
			row := make([]any, len(data.Attributes))
			for j, name := range data.Attributes {
				col, _ := t.Column(name)
				fk, isFK := t.ForeignKeyFor(name)
				switch {
				case isFK && len(attributes[fk.ReferencedTable]) > 0:
					row[j] = g.reference(fk, t.Name, i, rows, col.Nullable)
				case col.IsPrimaryKey:
					row[j] = g.key(t.Name, col.Type, i)
				default:
					row[j] = g.GenerateForColumn(col.Name, col.Type, col.Nullable)
				}
			}
			data.Values = append(data.Values, row)
		}
		result.Set(t.Name, data)
	}
	return result, nil
}

// closure adds every table reachable through foreign keys.
func closure(desc *types.SchemaDescription, tables []string) (map[string]bool, error) {
	selected := make(map[string]bool)
	if len(tables) == 0 {
		for _, t := range desc.Tables {
			selected[t.Name] = true
		}
		return selected, nil
	}

	queue := append([]string(nil), tables...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if selected[name] {
			continue
		}
		t, ok := desc.Table(name)
		if !ok {
			return nil, &apperrors.UnknownTableError{Table: name, Suggestion: schema.Suggest(name, desc.TableNames())}
		}
		selected[name] = true
		for _, fk := range t.ForeignKeys {
			queue = append(queue, fk.ReferencedTable)
		}
	}
	return selected, nil
}

func (g *DataGenerator) reference(fk *types.ForeignKey, table string, row, rows int, nullable bool) any {
	if fk.ReferencedTable != table {
		return types.FormatReference(fk.ReferencedTable, g.rand.Intn(rows)+1)
	}
	// Self-references may only point backwards.
	if row == 1 || (nullable && g.rand.Intn(3) == 0) {
		return nil
	}
	return types.FormatReference(table, g.rand.Intn(row-1)+1)
}

// key returns a value that is unique per row for primary key columns.
func (g *DataGenerator) key(table, colType string, row int) any {
	typeUpper := strings.ToUpper(colType)
	switch {
	case strings.Contains(typeUpper, "INT") || strings.Contains(typeUpper, "SERIAL"):
		return int64(row)
	case strings.Contains(typeUpper, "UUID"):
		return g.generateUUID()
	default:
		return fmt.Sprintf("%s-%d", table, row)
	}
}

func (g *DataGenerator) GenerateForColumn(colName, colType string, nullable bool) any {
	if nullable && g.rand.Intn(10) < 2 {
		return nil
	}

	colLower := strings.ToLower(colName)

	if strings.Contains(colLower, "email") {
		return g.generateEmail()
	}
	if strings.Contains(colLower, "name") && !strings.Contains(colLower, "file") && !strings.Contains(colLower, "user") {
		return g.generateName()
	}
	if strings.Contains(colLower, "title") {
		return g.generateTitle()
	}
	if strings.Contains(colLower, "description") || strings.Contains(colLower, "content") {
		return g.generateSentence()
	}
	if strings.Contains(colLower, "url") || strings.Contains(colLower, "link") {
		return g.generateURL()
	}
	if strings.Contains(colLower, "phone") {
		return g.generatePhone()
	}
	if strings.Contains(colLower, "address") {
		return g.generateAddress()
	}

	return g.Generate(colType)
}

func (g *DataGenerator) Generate(colType string) any {
	typeUpper := strings.ToUpper(colType)

	// VARCHAR(255) -> VARCHAR
	if idx := strings.Index(typeUpper, "("); idx > 0 {
		typeUpper = typeUpper[:idx]
	}

	switch {
	case strings.Contains(typeUpper, "INT") || strings.Contains(typeUpper, "SERIAL"):
		return int64(g.rand.Intn(1000) + 1)
	case strings.Contains(typeUpper, "BOOL"):
		return g.rand.Intn(2) == 1
	case strings.Contains(typeUpper, "TIMESTAMP") || strings.Contains(typeUpper, "DATETIME"):
		return g.generateTimestamp().Format("2006-01-02 15:04:05")
	case strings.Contains(typeUpper, "DATE"):
		return g.generateTimestamp().Format("2006-01-02")
	case strings.Contains(typeUpper, "DECIMAL") || strings.Contains(typeUpper, "NUMERIC") ||
		strings.Contains(typeUpper, "FLOAT") || strings.Contains(typeUpper, "DOUBLE") || strings.Contains(typeUpper, "REAL"):
		return math.Round(g.rand.Float64()*1000000) / 100
	case strings.Contains(typeUpper, "UUID"):
		return g.generateUUID()
	case strings.Contains(typeUpper, "JSON"):
		return `{"generated": true}`
	default:
		return g.generateWord()
	}
}

func (g *DataGenerator) generateName() string {
	firstNames := []string{"Ana", "Bruno", "Carla", "Diego", "Elisa", "Felipe", "Gabriela", "Heitor", "Isabela", "João"}
	lastNames := []string{"Silva", "Souza", "Oliveira", "Santos", "Lima", "Pereira", "Costa", "Almeida", "Ferreira", "Rocha"}
	return firstNames[g.rand.Intn(len(firstNames))] + " " + lastNames[g.rand.Intn(len(lastNames))]
}

func (g *DataGenerator) generateEmail() string {
	g.counter++
	domains := []string{"example.com", "example.org", "example.net"}
	return fmt.Sprintf("user%d_%d@%s", g.counter, g.rand.Intn(100000), domains[g.rand.Intn(len(domains))])
}

func (g *DataGenerator) generateTitle() string {
	titles := []string{
		"Primeiros passos",
		"Guia de bancos de dados",
		"Boas práticas de desenvolvimento",
		"Introdução a APIs",
		"Arquitetura de software moderna",
		"Fundamentos de computação em nuvem",
	}
	return titles[g.rand.Intn(len(titles))]
}

func (g *DataGenerator) generateSentence() string {
	sentences := []string{
		"Texto de exemplo gerado para testes.",
		"Produto entregue dentro do prazo combinado.",
		"Cliente solicitou atualização do cadastro.",
		"Pedido aguardando confirmação de pagamento.",
	}
	return sentences[g.rand.Intn(len(sentences))]
}

func (g *DataGenerator) generateWord() string {
	words := []string{"alfa", "beta", "gama", "delta", "épsilon", "zeta", "eta", "teta"}
	return words[g.rand.Intn(len(words))]
}

func (g *DataGenerator) generateURL() string {
	return fmt.Sprintf("https://example.com/page/%d", g.rand.Intn(1000))
}

func (g *DataGenerator) generatePhone() string {
	return fmt.Sprintf("+55 11 9%04d-%04d", g.rand.Intn(10000), g.rand.Intn(10000))
}

func (g *DataGenerator) generateAddress() string {
	return fmt.Sprintf("Rua Exemplo, %d, São Paulo - SP, %05d-%03d", g.rand.Intn(9999)+1, g.rand.Intn(100000), g.rand.Intn(1000))
}

func (g *DataGenerator) generateTimestamp() time.Time {
	return g.now.AddDate(0, 0, -g.rand.Intn(365))
}

func (g *DataGenerator) generateUUID() string {
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
