package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the outreach run journal",
	Long:  "Commands for listing, viewing, and summarizing recorded row outcomes.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded outcomes, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		j, err := initJournal(ctx)
		if err != nil {
			return err
		}
		defer j.Close() //nolint:errcheck

		outcome, _ := cmd.Flags().GetString("outcome")
		website, _ := cmd.Flags().GetString("website")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		runs, err := j.ListRuns(ctx, store.RunFilter{
			State:   model.RowState(outcome),
			Website: website,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 && (format == "" || format == "table") {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		return writeAs(os.Stdout, format, runs, func(w io.Writer) { formatRunsList(w, runs) })
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a recorded outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		j, err := initJournal(ctx)
		if err != nil {
			return err
		}
		defer j.Close() //nolint:errcheck

		run, err := j.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "" || format == "table" {
			format = "json"
		}
		return writeAs(os.Stdout, format, run, nil)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show outcome counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		j, err := initJournal(ctx)
		if err != nil {
			return err
		}
		defer j.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := j.ListRuns(ctx, store.RunFilter{Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("outcome", "", "filter by outcome (contacted, not_contacted, skipped, unprocessed)")
	runsListCmd.Flags().String("website", "", "filter by website")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().String("format", "table", "output format: table, json or yaml")

	runsShowCmd.Flags().String("format", "json", "output format: json or yaml")

	runsStatsCmd.Flags().Int("limit", 10000, "number of most recent runs to summarize")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds outcome counts over a set of runs.
type runStats struct {
	Total        int
	Contacted    int
	NotContacted int
	Skipped      int
	Unprocessed  int
	Other        int
	WithErrors   int
	AvgMaxScore  float64
}

// computeRunStats tallies outcomes. The average score covers scored runs only.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var scoreSum, scored int
	for _, r := range runs {
		switch r.State {
		case model.StateContacted:
			s.Contacted++
		case model.StateNotContacted:
			s.NotContacted++
		case model.StateSkipped:
			s.Skipped++
		case model.StateUnprocessed:
			s.Unprocessed++
		default:
			s.Other++
		}
		if r.Error != "" {
			s.WithErrors++
		}
		if r.MaxScore > 0 {
			scoreSum += r.MaxScore
			scored++
		}
	}

	if scored > 0 {
		s.AvgMaxScore = float64(scoreSum) / float64(scored)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tWEBSITE\tOUTCOME\tSCORE\tRECIPIENT\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-------\t-------\t-----\t---------\t-------")

	for _, r := range runs {
		website := r.Website
		if len(website) > 30 {
			website = website[:27] + "..."
		}
		score := "-"
		if r.MaxScore > 0 {
			score = fmt.Sprint(r.MaxScore)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			website,
			r.State,
			score,
			r.Recipient,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRunStats writes outcome counts to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Contacted:\t%d\n", s.Contacted)
	_, _ = fmt.Fprintf(w, "Not contacted:\t%d\n", s.NotContacted)
	_, _ = fmt.Fprintf(w, "Skipped:\t%d\n", s.Skipped)
	_, _ = fmt.Fprintf(w, "Unprocessed:\t%d\n", s.Unprocessed)
	if s.Other > 0 {
		_, _ = fmt.Fprintf(w, "Other:\t%d\n", s.Other)
	}
	_, _ = fmt.Fprintf(w, "With errors:\t%d\n", s.WithErrors)
	if s.AvgMaxScore > 0 {
		_, _ = fmt.Fprintf(w, "Avg max score:\t%.1f\n", s.AvgMaxScore)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
