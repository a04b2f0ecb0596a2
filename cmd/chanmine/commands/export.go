package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"chanmine/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Rewrite the master CSV from the stored corpus",
	Long: `Export recreates the master CSV snapshot from the corpus database,
in the original ingestion order. Running it twice against an unchanged
corpus produces byte-identical files.

Example:
  chanmine export --csv master_messages.csv`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&masterCSVPath, "csv", "master_messages.csv", "Path for the master CSV file")
}

func runExport(cmd *cobra.Command, args []string) error {
	database, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	records, err := database.LoadRecords()
	if err != nil {
		return err
	}

	if err := store.WriteCSV(masterCSVPath, records); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStderr(), "Wrote %d records to %s\n", len(records), masterCSVPath)
	return nil
}
