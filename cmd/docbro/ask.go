package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <name> <question...>",
	Short: "Ask a question about a crawled project",
	Long: `Retrieves the most relevant indexed chunks for the question and asks
Claude to answer from them. Requires ANTHROPIC_API_KEY and an indexed
project.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	projectName := args[0]
	question := strings.Join(args[1:], " ")

	answer, sources, err := application.Assistant.Ask(ctx, projectName, question)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	if len(sources) > 0 {
		fmt.Println("\nSources:")
		for _, url := range sources {
			fmt.Printf("  %s\n", url)
		}
	}
	return nil
}
