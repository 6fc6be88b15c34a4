package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/synthdb/internal/export"
	"github.com/Rana718/synthdb/internal/types"
)

var (
	insertFile   string
	insertDryRun bool
)

var insertCmd = &cobra.Command{
	Use:   "insert <connection>",
	Short: "Insert a generated result file into a connection",
	Long: `Insert rows from a JSON or YAML result file (as written by generate)
into a connection. Tables are inserted in foreign-key order inside a single
transaction; any failure rolls back every row.`,
	Example: `  synthdb insert shop --file result.json
  synthdb insert shop --file result.yaml --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := export.ReadResult(insertFile)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.connection(args[0]); err != nil {
			return err
		}
		return insertResult(ctx, a, args[0], result, insertDryRun)
	},
}

// insertResult prints the insertion plan and, unless dryRun, commits result.
func insertResult(ctx context.Context, a *app, connection string, result *types.GenerationResult, dryRun bool) error {
	engine := a.engine()

	plan, err := engine.Plan(ctx, connection, result)
	if err != nil {
		return err
	}
	if len(plan.Order) == 0 {
		color.Yellow("⚠️  Nothing to insert")
		return nil
	}

	color.Cyan("📋 Insertion order:")
	for i, table := range plan.Order {
		fmt.Printf("   %d. %s (%d rows)\n", i+1, table, len(result.Tables[table].Values))
	}
	if dryRun {
		color.Yellow("🔍 Dry run, nothing was written")
		return nil
	}

	outcome, err := engine.Insert(ctx, connection, result)
	if err != nil {
		color.Red("❌ Insert rolled back")
		return err
	}

	for _, table := range outcome.Order {
		color.Green("  ✅ %s: %d rows", table, outcome.Counts[table])
	}
	color.Green("🎉 Inserted %d rows into %s in %s", outcome.Total(), connection, outcome.Duration.Round(time.Millisecond))
	return nil
}

func init() {
	rootCmd.AddCommand(insertCmd)

	insertCmd.Flags().StringVar(&insertFile, "file", "", "Result file to insert (.json, .yaml or .yml)")
	insertCmd.Flags().BoolVar(&insertDryRun, "dry-run", false, "Validate and print the insertion order without writing")
	insertCmd.MarkFlagRequired("file")
}
