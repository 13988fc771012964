// Package main copies analysis records from a SQLite database into MySQL.
// It is used when a monitor outgrows the embedded database and its history
// should move to a shared server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/datastore"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	sqlitePath string
	batchSize  int
	skipVerify bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:     "dbexport",
		Short:   "Copy infant-guard analysis records from SQLite to MySQL",
		Version: version,
		Long: `Copy the analysis history from the SQLite database into the MySQL
database configured under output.mysql. Record IDs are preserved and rows
already present in the target are skipped, so the export can be re-run.
The output.mysql section needs host, database and credentials but does not
have to be enabled.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config.yaml with the output.mysql section")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite-path", "", "Source SQLite database (default: output.sqlite.path)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 500, "Records per batch")
	cmd.Flags().BoolVar(&opts.skipVerify, "skip-verify", false, "Skip the post-export count check")
	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	settings, err := conf.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if opts.sqlitePath != "" {
		settings.Output.SQLite.Path = opts.sqlitePath
	}
	if _, err := os.Stat(settings.Output.SQLite.Path); err != nil {
		return fmt.Errorf("SQLite database not found: %s", settings.Output.SQLite.Path)
	}

	source := &datastore.SQLiteStore{Settings: settings}
	if err := source.Open(); err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer source.Close()

	target := &datastore.MySQLStore{Settings: settings}
	if err := target.Open(); err != nil {
		return fmt.Errorf("failed to open target: %w", err)
	}
	defer target.Close()

	m, err := NewMigrator(source.DB, target.DB, opts.batchSize)
	if err != nil {
		return err
	}
	stats, err := m.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	stats.Print(cmd.OutOrStdout())

	if opts.skipVerify {
		return nil
	}
	src, dst, err := m.Verify(cmd.Context())
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Verification passed: %d source, %d target records\n", src, dst)
	return nil
}
