package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/synthdb/internal/export"
)

var (
	seedFlags  produceFlags
	seedSave   string
	seedDryRun bool
)

var seedCmd = &cobra.Command{
	Use:   "seed <connection>",
	Short: "Generate synthetic rows and insert them",
	Long: `Generate rows for a connection and insert them in one go. Use --save to
keep a copy of the generated result, which can be re-inserted later with the
insert command.`,
	Example: `  synthdb seed shop -p "10 customers and 3 orders for each"
  synthdb seed shop --offline --tables orders --rows 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := seedFlags.validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := produce(ctx, a, args[0], &seedFlags)
		if err != nil {
			return err
		}

		if seedSave != "" {
			if err := export.WriteJSON(seedSave, result); err != nil {
				return fmt.Errorf("failed to save result: %w", err)
			}
			color.Cyan("💾 Saved result to %s", seedSave)
		}

		return insertResult(ctx, a, args[0], result, seedDryRun)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedFlags.register(seedCmd)
	seedCmd.Flags().StringVar(&seedSave, "save", "", "Also write the generated result to this JSON file")
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Generate and plan without writing to the database")
}
