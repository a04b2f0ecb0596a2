package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	dbPath     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chanmine",
	Short: "Scrape Telegram channel histories and trace forward attribution",
	Long: `chanmine ingests the complete message history of a set of Telegram
broadcast channels, stores a normalized record per message, and derives a
forward-attribution table: which channels re-broadcast content from which
other channels, and in what share.

The tool is a batch job with two phases:
  - fetch:   walk each configured channel's full history into the local
             corpus (SQLite) and the master CSV
  - analyze: build the attribution report and run summary from the corpus

'run' executes both phases in one session. Channel credentials and the
channel list live in an ini config file (default config.ini).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.ini", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "chanmine.db", "Path to the corpus database")
}

// OutputError writes an error message to stderr
func OutputError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
