package command

// root.go defines the root command for the appgambit admin tool.
// Global flags and the shared database bootstrap live here.

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"appgambit/database"
	"appgambit/internal/config"
	"appgambit/internal/logger"
)

var (
	databaseURL string // overrides DATABASE_URL
	logLevel    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "appgambit",
	Short: "appgambit - AppGambit administration tool",
	Long: `appgambit is the operator tool for an AppGambit deployment. It talks to the
database directly, so it reads the same environment (.env, DATABASE_URL) as the
api-server. Use it to:
- Apply database migrations
- Create or promote administrator accounts
- Change a user's role

Use "appgambit command --help" to see all available commands.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// openDatabase loads the environment, connects and migrates. The caller closes it.
func openDatabase() (*gorm.DB, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	log := logger.New(logLevel, "text")
	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return db, log, nil
}
