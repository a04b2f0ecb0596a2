package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chanmine/internal/config"
	"chanmine/internal/ingest"
	"chanmine/internal/store"
	"chanmine/internal/telegram"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Ingest the full history of all configured channels",
	Long: `Fetch walks the complete message history of every channel listed in the
config file, strictly one channel at a time, and writes a normalized record
per message to the corpus database and the master CSV.

Each run replaces the stored snapshot for the configured channels. History
pages are requested with a fixed inter-request delay; failed requests are
retried after a backoff, forever by default (set max_retries in the [Fetch]
section to bound them).

Examples:
  # Ingest with the default config.ini and chanmine.db
  chanmine fetch

  # Separate corpus and CSV locations
  chanmine fetch --db /data/corpus.db --csv /data/master_messages.csv`,
	RunE: runFetch,
}

var masterCSVPath string

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&masterCSVPath, "csv", "master_messages.csv", "Path for the master CSV file")
}

func runFetch(cmd *cobra.Command, args []string) error {
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
		_, err := doFetch(ctx, client, cfg, database, cmd.OutOrStderr())
		return err
	})
}

// doFetch runs the ingestion phase against an open session. It is shared by
// the fetch and run commands.
func doFetch(ctx context.Context, client telegram.Client, cfg *config.Config, database *store.Store, out io.Writer) (*ingest.Result, error) {
	channels := cfg.Telegram.Channels
	fmt.Fprintf(out, "Scraping messages from %d target channels...\n", len(channels))

	// Fresh snapshot per run: drop the previous rows for every configured
	// channel before ingesting.
	for _, channel := range channels {
		if err := database.ClearChannel(channel); err != nil {
			return nil, err
		}
	}

	csvSink, err := store.NewCSVSink(masterCSVPath)
	if err != nil {
		return nil, err
	}

	result, runErr := ingest.Run(ctx, client, channels,
		[]ingest.Sink{database, csvSink}, database,
		ingest.Options{
			PageSize:     cfg.Fetch.PageSize,
			PageDelay:    cfg.Fetch.PageDelay,
			RetryBackoff: cfg.Fetch.RetryBackoff,
			MaxRetries:   cfg.Fetch.MaxRetries,
			Progress:     newBarProgress,
			Logf: func(format string, a ...interface{}) {
				fmt.Fprintf(out, format+"\n", a...)
			},
		})

	if err := csvSink.Close(); err != nil {
		return nil, err
	}
	if runErr != nil {
		return result, runErr
	}

	fmt.Fprintf(out, "Finished scraping messages from all channels and transferring them to the master CSV file. The total number of messages scraped was %d\n", result.RecordsWritten)

	return result, nil
}

func sessionConfig(cfg *config.Config) telegram.SessionConfig {
	return telegram.SessionConfig{
		APIID:       cfg.Telegram.APIID,
		APIHash:     cfg.Telegram.APIHash,
		Phone:       cfg.Telegram.Phone,
		SessionFile: cfg.Telegram.SessionFile,
	}
}
