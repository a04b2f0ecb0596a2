package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"chanmine/internal/config"
	"chanmine/internal/store"
	"chanmine/internal/timeseries"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics and per-channel monthly message counts",
	Long: `Stats summarizes the stored corpus (message, channel, and forward counts,
date range) and writes the per-channel monthly message counts that back the
message-volume chart. Chart rendering itself happens outside this tool;
--chart validates and echoes the [Plotly] style section for that path.

Examples:
  chanmine stats
  chanmine stats --chart --monthly-csv /data/messages_by_channel_by_month.csv`,
	RunE: runStats,
}

var (
	monthlyCSVPath string
	showChartStyle bool
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&monthlyCSVPath, "monthly-csv", "messages_by_channel_by_month.csv", "Path for the monthly-counts CSV")
	statsCmd.Flags().BoolVar(&showChartStyle, "chart", false, "Validate and print the [Plotly] chart style section")
}

func runStats(cmd *cobra.Command, args []string) error {
	database, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	stats, err := database.Stats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Messages:  %d\n", stats.MessageCount)
	fmt.Fprintf(out, "Channels:  %d\n", stats.ChannelCount)
	fmt.Fprintf(out, "Forwards:  %d\n", stats.ForwardCount)
	if stats.EarliestMessage != nil && stats.LatestMessage != nil {
		fmt.Fprintf(out, "Range:     %s .. %s\n",
			stats.EarliestMessage.Format("2006-01-02"),
			stats.LatestMessage.Format("2006-01-02"))
	}
	fmt.Fprintf(out, "DB size:   %d bytes\n", stats.DatabaseSize)

	records, err := database.LoadRecords()
	if err != nil {
		return err
	}

	buckets := timeseries.MonthlyCounts(records)
	if err := timeseries.WriteCSV(monthlyCSVPath, buckets); err != nil {
		return err
	}
	fmt.Fprintf(out, "Monthly message counts written to %s\n", monthlyCSVPath)

	if len(buckets) > 0 {
		table := pterm.TableData{{"channel_username", "month", "count"}}
		for _, b := range buckets {
			table = append(table, []string{b.Channel, b.Month, fmt.Sprintf("%d", b.Count)})
		}
		pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	}

	if showChartStyle {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		plot, err := cfg.Plot()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Chart style: template=%s autosize=%t width=%d height=%d\n",
			plot.Template, plot.Autosize, plot.Width, plot.Height)
	}

	return nil
}
