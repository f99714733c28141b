package cli

import (
	"fmt"

	"github.com/nao1215/sheetsql"
	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <path>",
		Short: "Load spreadsheet files into the database",
		Long: `Load ingests the spreadsheet file or directory at path.

Each workbook sheet becomes a table named <file>_<sheet>; each Parquet
file becomes one table named after the file. Files whose tables are
already in the catalog are reported without re-reading them; use
refresh to force a re-read. Files that cannot be decoded are reported
on stderr while the rest of the batch continues.`,
		Example: `  # Load every spreadsheet in a directory
  sheetsql load ./data

  # Inspect what a workbook would produce, without keeping anything
  sheetsql load budget.xlsx --db :memory: --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args[0], false)
		},
	}
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <path>",
		Short: "Reload spreadsheet files, bypassing the catalog",
		Long: `Refresh drops every table previously loaded from path and ingests it
again from scratch. Tables from other sources are untouched.
Refreshing a path that was never loaded behaves like load.`,
		Example: `  # Re-read a directory after its files changed
  sheetsql refresh ./data`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args[0], true)
		},
	}
}

func runLoad(cmd *cobra.Command, path string, refresh bool) error {
	db, cleanup, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var summary *sheetsql.LoadSummary
	if refresh {
		summary, err = db.Refresh(cmd.Context(), path)
	} else {
		summary, err = db.Load(cmd.Context(), path)
	}
	if err != nil {
		return err
	}

	for _, fe := range summary.Errors {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", fe)
	}
	return renderSummary(cmd.OutOrStdout(), configFrom(cmd.Context()).Output, summary)
}
