package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/fipecrawler/internal/database"
	"github.com/nao1215/fipecrawler/internal/sink"
)

// errNothingToExport is returned when neither --csv nor --xlsx is given.
var errNothingToExport = errors.New("nothing to export: set --csv and/or --xlsx")

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored records to CSV or XLSX",
		Long: `Export writes the records kept in the SQLite database to a CSV file,
an XLSX workbook or both. Existing files are replaced.

Examples:
  # Everything collected so far
  fipecrawler export --csv fipe.csv

  # One reference table, as a spreadsheet
  fipecrawler export --xlsx janeiro.xlsx --table 308

  # Records of a single run
  fipecrawler export --csv run.csv --run 6f1c...`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	flags := cmd.Flags()
	flags.String("data-dir", "", "Directory holding the database (default: XDG data directory)")
	flags.String("csv", "", "Write records to this CSV file")
	flags.String("xlsx", "", "Write records to this XLSX workbook")
	flags.String("table", "", "Only records of this reference table id")
	flags.String("run", "", "Only records stored by this run id")
	flags.String("brand", "", "Only records of this brand")

	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	csvPath, err := flags.GetString("csv")
	if err != nil {
		return err
	}
	xlsxPath, err := flags.GetString("xlsx")
	if err != nil {
		return err
	}
	if csvPath == "" && xlsxPath == "" {
		return errNothingToExport
	}

	var filter database.VehicleFilter
	if filter.TableID, err = flags.GetString("table"); err != nil {
		return err
	}
	if filter.RunID, err = flags.GetString("run"); err != nil {
		return err
	}
	if filter.Brand, err = flags.GetString("brand"); err != nil {
		return err
	}

	dataDir, err := dataDirFlag(cmd)
	if err != nil {
		return err
	}
	db, err := database.Open(dataDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // read-only

	records, err := db.ListVehicles(cmd.Context(), filter)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No records match the filter.")
		return nil
	}

	var g errgroup.Group
	if csvPath != "" {
		g.Go(func() error {
			return withOutput(csvPath, io.Discard, func(w io.Writer) error {
				return sink.WriteCSV(w, records)
			})
		})
	}
	if xlsxPath != "" {
		g.Go(func() error {
			return sink.WriteXLSX(xlsxPath, records)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	for _, path := range []string{csvPath, xlsxPath} {
		if path != "" {
			fmt.Fprintf(out, "Exported %d records to %s\n", len(records), path)
		}
	}
	return nil
}
