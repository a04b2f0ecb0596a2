package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"chanmine/internal/attribution"
	"chanmine/internal/config"
	"chanmine/internal/store"
	"chanmine/internal/telegram"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build the forward-attribution report from the stored corpus",
	Long: `Analyze reads the normalized corpus, keeps the messages whose forward
origin resolved to a channel username, and groups them into one row per
forward target: total shares, current subscriber count, and the percentage
contributed by each scraped source channel.

Targets that no longer exist (or cannot be resolved) are dropped from the
report; the run summary still counts them among the distinct targets found.

Examples:
  # Analyze the default corpus
  chanmine analyze

  # Write the report elsewhere
  chanmine analyze --report /data/analysis-results.csv`,
	RunE: runAnalyze,
}

var (
	reportCSVPath  string
	summaryTxtPath string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&reportCSVPath, "report", "analysis-results.csv", "Path for the attribution report CSV")
	analyzeCmd.Flags().StringVar(&summaryTxtPath, "summary", "analysis-results.txt", "Path for the run summary text file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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
		return doAnalyze(ctx, client, cfg, database, cmd.OutOrStderr())
	})
}

// doAnalyze runs the aggregation phase against an open session. It is
// shared by the analyze and run commands.
func doAnalyze(ctx context.Context, client telegram.Client, cfg *config.Config, database *store.Store, out io.Writer) error {
	fmt.Fprintf(out, "Transforming the scraped messages into a social network analysis dataset and analysing the results...\n")

	// Scope to the configured channels so the report and summary describe
	// this run's channel set, not stale rows from earlier configs.
	records, err := database.LoadChannelRecords(cfg.Telegram.Channels)
	if err != nil {
		return err
	}

	report, summary, err := attribution.BuildReport(ctx, records, client, func(format string, a ...interface{}) {
		fmt.Fprintf(out, format+"\n", a...)
	})
	if err != nil {
		return err
	}
	summary.ChannelsConfigured = len(cfg.Telegram.Channels)

	fmt.Fprintf(out, "Dataset has been successfully created for social network analysis! There are a total of %d forwarded messages in the dataset.\n", summary.ForwardingMessages)

	if err := report.WriteCSV(reportCSVPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "Analysis results have been saved to %s\n", reportCSVPath)

	if err := summary.WriteText(summaryTxtPath); err != nil {
		return err
	}

	if len(report.Rows) > 0 {
		table := pterm.TableData{report.Header()}
		for _, row := range report.Table() {
			table = append(table, row)
		}
		pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	}

	fmt.Fprint(out, summary.Format())

	return nil
}
