// Package cmd contains the CLI commands for oncallctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/oncall/internal/storage"
	"github.com/good-yellow-bee/oncall/pkg/config"
)

// defaultDBPath is the default database path, can be overridden via
// ONCALL_DB_PATH env var
var defaultDBPath = "data/oncall.db"

func init() {
	if envPath := os.Getenv("ONCALL_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

var (
	// Used for flags
	verbose bool
	dbPath  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "oncallctl",
	Short: "OnCall - operator tool for the alert ingestion engine",
	Long: `oncallctl manages OnCall resources directly in the database:
integration channels, heartbeat records, and per-user notification quotas.

It is intended for system administrators provisioning channels and
inspecting state outside of the HTTP surface.

Examples:
  # Create an AlertManager channel
  oncallctl channel create --org <org-id> --name "prod alertmanager" --integration alertmanager

  # List heartbeat records of a channel
  oncallctl heartbeat list --channel <channel-id>

  # Show a user's notification quota
  oncallctl quota report --org <org-id> --user alice`,
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.VersionString())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "path to SQLite database file")

	rootCmd.AddCommand(versionCmd)
}

// openDatabase opens the SQLite database behind the --db flag.
func openDatabase() (*storage.SQLiteStorage, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", dbPath)
	}

	store := storage.NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}
