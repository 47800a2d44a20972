package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/replaykit/replay-cli/internal/config"
	"github.com/replaykit/replay-cli/internal/output"
	"github.com/replaykit/replay-cli/internal/version"
)

// cfg is loaded once by the root command and shared by all subcommands.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "replay-cli",
	Short: "Replay recorded desktop workflows",
	Long:  "A CLI tool that replays recorded desktop workflows: clicks, typing, hotkeys and waits, with retries, rescaling and an abort key.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().String("config", "Settings.ini", "Path to the settings file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		configPath, _ := rootCmd.PersistentFlags().GetString("config")
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		format, _ := rootCmd.PersistentFlags().GetString("format")
		switch format {
		case "yaml", "":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
		}
		if pretty, err := rootCmd.PersistentFlags().GetBool("pretty"); err == nil && pretty {
			output.PrettyOutput = true
		}
		return nil
	}
}
