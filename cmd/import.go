package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/pkg/notion"
)

var (
	importCSVPath string
	importTable   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import candidate rows from CSV into the source table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if importTable == "" {
			if err := cfg.Validate("import"); err != nil {
				return err
			}
			importTable = cfg.Notion.SourceDB
		} else if err := cfg.Validate("tables"); err != nil {
			return err
		}

		res, err := notion.ImportCSV(ctx, newNotionClient(), importTable, importCSVPath)
		if err != nil {
			return eris.Wrap(err, "import csv")
		}

		zap.L().Info("import complete",
			zap.Int("created", res.Created),
			zap.Int("duplicates", res.Duplicates),
			zap.Int("no_website", res.NoWebsite),
			zap.String("csv", importCSVPath),
			zap.String("table", importTable),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	importCmd.Flags().StringVar(&importTable, "table", "", "target database id (default notion.source_db)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
