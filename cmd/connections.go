package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/synthdb/internal/config"
)

var connectionsPing bool

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conns"},
	Short:   "List and validate configured connections",
	Long: `List every connection from the config file, show its connection URL
with the password masked, and report configuration errors. With --ping each
valid connection is also contacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if len(a.cfg.Connections) == 0 {
			color.Yellow("No connections configured")
			return nil
		}

		invalid := 0
		for _, conn := range a.cfg.Connections {
			if err := a.connection(conn.Name); err != nil {
				invalid++
				color.Red("❌ %s: %v", conn.Name, err)
				continue
			}

			url := config.BuildConnectionURL(conn.Redacted())
			if !connectionsPing {
				color.Green("✅ %s", conn.Name)
				fmt.Printf("   %s\n", url)
				continue
			}

			if err := a.registry.Ping(ctx, conn.Name); err != nil {
				invalid++
				color.Red("❌ %s: %v", conn.Name, err)
				continue
			}
			color.Green("✅ %s (reachable)", conn.Name)
			fmt.Printf("   %s\n", url)
		}

		if invalid > 0 {
			return fmt.Errorf("%d of %d connections failed", invalid, len(a.cfg.Connections))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectionsCmd)

	connectionsCmd.Flags().BoolVar(&connectionsPing, "ping", false, "Check that each database is reachable")
}
