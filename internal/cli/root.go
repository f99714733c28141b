// Package cli implements the sheetsql command line tool.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/sheetsql"
	"github.com/nao1215/sheetsql/store"
	"github.com/spf13/cobra"
)

// Version is the tool version, set at build time.
var Version = "0.1.0"

var cfgFile string

// configKey is used to store the loaded Config in the command context.
type configKey struct{}

// loggerKey is used to store the logger in the command context.
type loggerKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sheetsql",
		Short: "Load spreadsheet files into SQL tables",
		Long: `sheetsql loads spreadsheet files into a SQL database.

Excel workbooks (.xlsx, .xlsm) and Parquet files, optionally wrapped in
gz, bz2, xz, or zstd compression, become queryable tables: one table per
workbook sheet, one per Parquet file. Column types are inferred from the
data. Loaded tables are recorded in a catalog inside the database
itself, so later invocations see them without re-reading the sources.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := loadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := slog.New(slog.DiscardHandler)
			if cfg.Verbose {
				logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: slog.LevelDebug,
				}))
				if cfg.ConfigFile != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", cfg.ConfigFile)
				}
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sheetsql.yaml)")
	rootCmd.PersistentFlags().String("db", DefaultDBPath, "database file (:memory: for a throwaway session)")
	rootCmd.PersistentFlags().String("driver", store.DriverSQLite, "database backend (sqlite|duckdb)")
	rootCmd.PersistentFlags().StringP("output", "o", outputTable, "output format (table|json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Int("workers", 0, "files extracted in parallel (0 = number of CPUs)")
	rootCmd.PersistentFlags().Int("chunk-size", sheetsql.DefaultChunkSize, "rows per bulk insert batch")
	rootCmd.PersistentFlags().Duration("file-timeout", sheetsql.DefaultFileTimeout, "per-file extraction timeout (0 disables)")
	rootCmd.PersistentFlags().StringSlice("date-format", nil, "date layout in Go reference time syntax (repeatable, replaces the defaults)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{outputTable, outputJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return store.Drivers(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewLoadCommand())
	rootCmd.AddCommand(NewRefreshCommand())
	rootCmd.AddCommand(NewTablesCommand())
	rootCmd.AddCommand(NewSchemaCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// configFrom retrieves the config from the command context.
func configFrom(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		DB:     DefaultDBPath,
		Driver: store.DriverSQLite,
		Output: outputTable,
	}
}

// loggerFrom retrieves the logger from the command context.
func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// openDB opens the configured store and wires it into a sheetsql DB.
// The returned cleanup closes the database.
func openDB(cmd *cobra.Command) (*sheetsql.DB, func(), error) {
	ctx := cmd.Context()
	cfg := configFrom(ctx)

	st, err := store.Open(ctx, store.Config{Driver: cfg.Driver, Path: cfg.DB})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	opts := []sheetsql.Option{
		sheetsql.WithLogger(loggerFrom(ctx)),
		sheetsql.WithWorkers(cfg.Workers),
		sheetsql.WithChunkSize(cfg.ChunkSize),
		sheetsql.WithFileTimeout(cfg.FileTimeout),
	}
	if len(cfg.DateFormats) > 0 {
		opts = append(opts, sheetsql.WithDateFormats(cfg.DateFormats...))
	}
	db, err := sheetsql.Open(ctx, st, opts...)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, func() { _ = db.Close() }, nil
}
