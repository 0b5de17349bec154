package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/app"
	"github.com/ternarybob/docbro/internal/common"
)

var (
	flagConfig  string
	flagDataDir string
	flagDebug   bool

	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "docbro",
	Short:         "Crawl documentation sites and query them locally",
	Long:          "DocBro crawls documentation sites into a local store, indexes the content for semantic search, and answers questions about it.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := common.LoadFromFile(flagConfig)
		if err != nil {
			return err
		}
		if flagDataDir != "" {
			loaded.DataDir = flagDataDir
		}
		if flagDebug {
			loaded.Logging.Level = "debug"
		}
		config = loaded
		logger = common.InitLogger(config)
		return nil
	},
}

// newApp builds the wired application for a command run.
func newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, config, logger)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ./docbro.toml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory override")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	common.LoadVersionFromFile()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
