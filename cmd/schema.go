package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/synthdb/internal/apperrors"
	"github.com/Rana718/synthdb/internal/generator"
	"github.com/Rana718/synthdb/internal/schema"
)

var (
	schemaYAML   bool
	schemaBudget bool
	schemaPrompt string
)

var schemaCmd = &cobra.Command{
	Use:   "schema <connection>",
	Short: "Show the schema description sent to the generation service",
	Long: `Extract the live schema of a connection and print it as the text the
generation service receives. --yaml prints the structured description instead,
--budget shows how many response tokens would remain for a prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.connection(name); err != nil {
			return err
		}

		desc, err := a.schemas.ExtractSchema(ctx, name)
		if err != nil {
			return err
		}

		if schemaYAML {
			out, err := schema.RenderYAML(desc)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
		} else {
			fmt.Print(schema.Render(desc))
		}

		if !schemaBudget {
			return nil
		}

		gen := a.cfg.Generation
		breakdown, err := a.budget().Compute(
			generator.Instructions(gen.RowsPerTable, gen.Locale),
			schema.Render(desc),
			schemaPrompt,
			gen.MaxTokens,
			gen.Model,
		)
		if err != nil && !errors.Is(err, apperrors.ErrBudgetExceeded) {
			return err
		}

		fmt.Println()
		color.Cyan("📊 Token budget for %s (max %d)", gen.Model, breakdown.MaxTokens)
		fmt.Printf("   instructions: %d\n", breakdown.Instructions)
		fmt.Printf("   schema:       %d\n", breakdown.Schema)
		fmt.Printf("   prompt:       %d\n", breakdown.Prompt)
		fmt.Printf("   overhead:     %d\n", breakdown.Overhead)
		if err != nil {
			color.Red("   remaining:    %d", breakdown.Remaining)
			return err
		}
		color.Green("   remaining:    %d", breakdown.Remaining)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().BoolVar(&schemaYAML, "yaml", false, "Print the schema description as YAML")
	schemaCmd.Flags().BoolVar(&schemaBudget, "budget", false, "Show the token budget left for a response")
	schemaCmd.Flags().StringVarP(&schemaPrompt, "prompt", "p", "", "Prompt to include in the budget")
}
