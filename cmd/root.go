package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool
	Version = "0.3.0"
)

func showBanner() {
	greenColor := color.New(color.FgGreen, color.Bold)

	banner := []string{
		"╔══════════════════════════════════════════════╗",
		"║   ███████╗██╗   ██╗███╗   ██╗████████╗██╗  ██╗ ║",
		"║   ██╔════╝╚██╗ ██╔╝████╗  ██║╚══██╔══╝██║  ██║ ║",
		"║   ███████╗ ╚████╔╝ ██╔██╗ ██║   ██║   ███████║ ║",
		"║   ╚════██║  ╚██╔╝  ██║╚██╗██║   ██║   ██╔══██║ ║",
		"║   ███████║   ██║   ██║ ╚████║   ██║   ██║  ██║ ║",
		"║   ╚══════╝   ╚═╝   ╚═╝  ╚═══╝   ╚═╝   ╚═╝  ╚═╝ ║",
		"║        🧪 Schema-aware synthetic data 🧪      ║",
		"╚══════════════════════════════════════════════╝",
	}

	for _, line := range banner {
		greenColor.Println(line)
	}

	fmt.Print("              ")
	color.New(color.FgCyan, color.Bold).Print("Version: ")
	color.New(color.FgYellow, color.Bold).Printf("%s\n", Version)
}

var rootCmd = &cobra.Command{
	Use:   "synthdb",
	Short: "Generate schema-consistent synthetic data for relational databases",
	Long: `
synthdb reads the live schema of a configured database, asks a text
generation service for rows that fit it, and inserts them in foreign-key
order inside a single transaction.

Database Support:
- PostgreSQL (pgx or lib/pq)
- MySQL
- SQLite (mattn or modernc)`,
	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		showVersion, _ := cmd.Flags().GetBool("version")
		if showVersion {
			fmt.Printf("synthdb version %s\n", Version)
			return
		}

		showBanner()
		fmt.Println()
		cmd.Help()
	},
}

// Execute runs the CLI. An interrupt cancels the running command's context,
// which rolls back an insert in progress.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./synthdb.config.json or .yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug output to stderr")

	rootCmd.Flags().BoolP("version", "v", false, "Show CLI version")
}

func initConfig() {
	// Missing files are fine; variables already set in the environment win.
	godotenv.Load(".env")
	godotenv.Load(".env.local")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("synthdb.config")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			color.Yellow("⚠️  Could not read config file: %v", err)
		}
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return zap.NewNop()
	}
	return logger
}
