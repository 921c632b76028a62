package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/fipecrawler/internal/database"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous crawl runs",
		Long: `History lists the crawl runs recorded in the SQLite database, most recent
first. With a run id, it shows that run and the number of records it stored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("data-dir", "", "Directory holding the database (default: XDG data directory)")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Number of runs to list (0 for all)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dataDir, err := dataDirFlag(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := database.Open(dataDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // read-only

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%w: %s", err, args[0])
		}
		records, err := db.ListVehicles(ctx, database.VehicleFilter{RunID: run.ID})
		if err != nil {
			return err
		}
		printRun(out, run, len(records))
		return nil
	}

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'fipecrawler crawl' to start one.")
		return nil
	}

	fmt.Fprintf(out, "Crawl history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %8s  %6s  %s\n", "ID", "Started", "Status", "Records", "Tables", "Duration")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 96))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %8d  %6d  %s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Status,
			run.Records,
			run.Tables,
			formatDuration(run.Duration()),
		)
	}
	fmt.Fprintln(out, "\nUse 'fipecrawler history <id>' for details or 'fipecrawler export --run <id>' to export a run.")
	return nil
}

func printRun(out io.Writer, run database.Run, stored int) {
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(out, "Finished: %s\n", run.FinishedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(out, "Duration: %s\n", formatDuration(run.Duration()))
	fmt.Fprintf(out, "Records:  %d (%d stored)\n", run.Records, stored)
	fmt.Fprintf(out, "Tables:   %d\n", run.Tables)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
