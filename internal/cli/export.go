package cli

import (
	"fmt"

	"github.com/nao1215/sheetsql"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var (
		formatFlag   string
		compressFlag string
	)
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Export loaded tables to files",
		Long: `Export writes every loaded table into dir, one file per table. The
xlsx format instead writes a single workbook with one sheet per table.`,
		Example: `  # Export all tables as CSV
  sheetsql export ./out

  # Export as gzip-compressed Parquet
  sheetsql export ./out --format parquet --compress gz

  # Export everything into one workbook
  sheetsql export ./out --format xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := sheetsql.ParseExportFormat(formatFlag)
			if err != nil {
				return err
			}
			compression, err := sheetsql.ParseCompressionType(compressFlag)
			if err != nil {
				return err
			}

			db, cleanup, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			options := sheetsql.NewExportOptions().
				WithFormat(format).
				WithCompression(compression)
			if err := db.Export(cmd.Context(), args[0], options); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tables to %s\n", len(db.Tables()), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "csv", "output format (csv|tsv|xlsx|parquet)")
	cmd.Flags().StringVar(&compressFlag, "compress", "none", "compression (none|gz|xz|zst)")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"csv", "tsv", "xlsx", "parquet"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("compress", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"none", "gz", "xz", "zst"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
