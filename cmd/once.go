package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
)

var onceRowID string

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Process a single row now, ignoring the schedule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initOutreach(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var out *model.Outcome
		if onceRowID != "" {
			out, err = env.Processor.ProcessByID(ctx, onceRowID)
		} else {
			out, err = env.Processor.ProcessNext(ctx)
		}
		if errors.Is(err, pipeline.ErrNoRows) {
			zap.L().Info("no unprocessed rows")
			return nil
		}
		if out != nil {
			if werr := writeOutcome(os.Stdout, out); werr != nil {
				return werr
			}
		}
		return err
	},
}

// writeOutcome prints an outcome as indented JSON.
func writeOutcome(w io.Writer, out *model.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	onceCmd.Flags().StringVar(&onceRowID, "row", "", "process this row id instead of the next unprocessed one")
	rootCmd.AddCommand(onceCmd)
}
