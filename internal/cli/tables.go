package cli

import (
	"github.com/nao1215/sheetsql"
	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List loaded tables",
		Long: `List every table in the catalog with its row count and source file.`,
		Example: `  # List tables from the default database
  sheetsql tables

  # List tables as JSON
  sheetsql tables --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			names := db.Tables()
			infos := make([]*sheetsql.TableInfo, 0, len(names))
			for _, name := range names {
				info, err := db.Schema(name)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}
			return renderTables(cmd.OutOrStdout(), configFrom(cmd.Context()).Output, infos)
		},
	}
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns of a loaded table",
		Long: `Show the column names and inferred types recorded for one table.`,
		Example: `  sheetsql schema budget_Q1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := db.Schema(args[0])
			if err != nil {
				return err
			}
			return renderSchema(cmd.OutOrStdout(), configFrom(cmd.Context()).Output, info)
		},
	}
}
