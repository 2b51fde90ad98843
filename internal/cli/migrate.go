package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendsync/internal/storage"
)

type migrateResult struct {
	Database string `json:"database"`
	Version  uint   `json:"version"`
	Dirty    bool   `json:"dirty"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config.DataBackend != "sqlite" {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("migrate needs the sqlite backend, got %q", opts.Config.DataBackend))
			}
			path := opts.Config.SQLiteDBPath
			if err := storage.RunMigrations(path); err != nil {
				return WrapExitError(ExitCommandError, "migration failed", err)
			}
			version, dirty, err := storage.SchemaVersion(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read schema version", err)
			}

			res := migrateResult{Database: path, Version: version, Dirty: dirty}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s at schema version %d\n", path, version)
			return nil
		},
	}
}
