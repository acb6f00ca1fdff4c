package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oakridgegc/teetime-lottery/cmd/cli/commands"
	"github.com/oakridgegc/teetime-lottery/internal/config"
	"github.com/oakridgegc/teetime-lottery/pkg/postgres"
	"github.com/oakridgegc/teetime-lottery/pkg/utils/logging"
)

var (
	env string
	app *commands.AppContext
)

func main() {
	app = &commands.AppContext{}

	rootCmd := &cobra.Command{
		Use:   "teesheet",
		Short: "Oakridge tee-sheet CLI - Run the tee time lottery",
		Long:  `A CLI tool for processing tee time lottery entries, monthly maintenance, and reviewing assignment outcomes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(commands.ProcessDateCmd(app))
	rootCmd.AddCommand(commands.RunMaintenanceCmd(app))
	rootCmd.AddCommand(commands.PreviewWindowsCmd(app))
	rootCmd.AddCommand(commands.ViewStatsCmd(app))
	rootCmd.AddCommand(commands.ListProfilesCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, and database
func initApp() error {
	var err error
	app.Ctx = context.Background()

	// Initialize logger
	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.Int("restrictions", len(app.Cfg.Restrictions)))

	// Connect to the database
	app.Logger.Info("Connecting to database")
	pgDB, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Apply pending migrations
	app.Logger.Info("Running migrations")
	if err := pgDB.RunMigrations(app.Ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app.Database = pgDB
	app.Logger.Info("Database initialized successfully")

	return nil
}
