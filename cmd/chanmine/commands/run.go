package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"chanmine/internal/config"
	"chanmine/internal/store"
	"chanmine/internal/telegram"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch all channels and analyze in one session",
	Long: `Run executes the full batch pipeline: ingest the complete history of
every configured channel, then build the attribution report and summary,
all within a single platform session.

Example:
  chanmine run --config config.ini`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&masterCSVPath, "csv", "master_messages.csv", "Path for the master CSV file")
	runCmd.Flags().StringVar(&reportCSVPath, "report", "analysis-results.csv", "Path for the attribution report CSV")
	runCmd.Flags().StringVar(&summaryTxtPath, "summary", "analysis-results.txt", "Path for the run summary text file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	database, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	return telegram.RunClient(cmd.Context(), sessionConfig(cfg), func(ctx context.Context, client telegram.Client) error {
		if _, err := doFetch(ctx, client, cfg, database, cmd.OutOrStderr()); err != nil {
			return err
		}
		return doAnalyze(ctx, client, cfg, database, cmd.OutOrStderr())
	})
}
