package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/docbro/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// No app wiring needed; skip the config/logger setup entirely.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("docbro " + common.GetFullVersion())
	},
}
