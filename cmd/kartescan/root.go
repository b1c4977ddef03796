package main

import (
	"github.com/spf13/cobra"

	"github.com/kartescan/kartescan/internal/api"
	"github.com/kartescan/kartescan/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "kartescan",
	Short: "Medical chart digitization with scored, review-gated field extraction",
	Long: `Kartescan digitizes scanned medical charts into structured records.

Each chart page goes through two model passes: a verbatim transcription
of the handwritten fields, then a clinical interpretation of each field.
Both outputs are scored against each other (edit distance and embedding
similarity) and fields that fall below their thresholds are flagged for
human review before the record is accepted.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.kartescan/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "kartescan home directory (default: ~/.kartescan)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
