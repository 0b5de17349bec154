package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/docbro/internal/common"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with progress streaming",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port override")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		config.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	common.PrintBanner(common.GetVersion())
	fmt.Printf("Server running on http://%s:%d\n", config.Server.Host, config.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	return application.Serve(ctx)
}
