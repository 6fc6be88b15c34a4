package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/synthdb/internal/export"
	"github.com/Rana718/synthdb/internal/types"
)

// produceFlags are shared by generate and seed.
type produceFlags struct {
	prompt  string
	offline bool
	rows    int
	seed    int64
	tables  []string
}

func (f *produceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.prompt, "prompt", "p", "", "What data to generate")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "Fill tables with placeholder values instead of calling the generation service")
	cmd.Flags().IntVarP(&f.rows, "rows", "n", 0, "Default rows per table (config generation.rows_per_table when 0)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed for --offline")
	cmd.Flags().StringSliceVarP(&f.tables, "tables", "t", nil, "Tables to fill with --offline (referenced tables are added)")
}

func (f *produceFlags) validate() error {
	if f.offline {
		return nil
	}
	if strings.TrimSpace(f.prompt) == "" {
		return fmt.Errorf("--prompt is required unless --offline is set")
	}
	if len(f.tables) > 0 {
		return fmt.Errorf("--tables only applies with --offline; name the tables in the prompt instead")
	}
	return nil
}

// produce returns a result for connection, either from the generation
// service or offline from the schema.
func produce(ctx context.Context, a *app, connection string, f *produceFlags) (*types.GenerationResult, error) {
	if err := a.connection(connection); err != nil {
		return nil, err
	}

	if f.offline {
		return a.synthesize(ctx, connection, f.rows, f.seed, f.tables)
	}

	orch, err := a.orchestrator(f.rows)
	if err != nil {
		return nil, err
	}

	// Progress goes to stderr so the JSON on stdout stays pipeable.
	infof(os.Stderr, "🤖 Generating data for %s with %s...\n", connection, a.cfg.Generation.Model)
	entry, err := orch.GenerateEntry(ctx, a.request(connection, f.prompt))
	if err != nil {
		return nil, err
	}
	successf(os.Stderr, "✅ %s: %d rows across %d tables (request %s)\n", entry.Key, entry.Result.RowCount(), entry.Result.Len(), entry.RequestID)
	return entry.Result, nil
}

var (
	infof    = color.New(color.FgCyan).FprintfFunc()
	successf = color.New(color.FgGreen).FprintfFunc()
)

var (
	generateFlags  produceFlags
	generateOut    string
	generateFormat string
)

var generateCmd = &cobra.Command{
	Use:     "generate <connection>",
	Aliases: []string{"gen"},
	Short:   "Generate synthetic rows for a connection without inserting them",
	Long: `Generate rows that fit the live schema of a connection. The result is
printed as JSON, or written to --out in the chosen format. Written JSON and
YAML files can later be inserted with the insert command.`,
	Example: `  synthdb generate shop -p "5 customers from Recife with 2 orders each"
  synthdb generate shop -p "20 products" --out products.yaml --format yaml
  synthdb generate shop --offline --rows 3 --out snapshot --format csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := generateFlags.validate(); err != nil {
			return err
		}
		if generateOut == "" && generateFormat != export.FormatJSON {
			return fmt.Errorf("--format %s needs --out", generateFormat)
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := produce(ctx, a, args[0], &generateFlags)
		if err != nil {
			return err
		}

		if generateOut == "" {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal result: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		path, err := export.PerformExport(result, generateOut, generateFormat)
		if err != nil {
			return err
		}
		color.Green("📦 Wrote %d tables to %s", result.Len(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateFlags.register(generateCmd)
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Write the result to this path (a directory for csv)")
	generateCmd.Flags().StringVarP(&generateFormat, "format", "f", export.FormatJSON,
		fmt.Sprintf("Output format (%s)", strings.Join(export.Formats, ", ")))
}
