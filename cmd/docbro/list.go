package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documentation projects",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	projects, err := application.Store.ProjectStorage().ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if listJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(projects)
	}

	if len(projects) == 0 {
		fmt.Println("No projects. Create one with: docbro create <name> --url <url>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tPAGES\tEMBEDDINGS\tLAST CRAWL\tURL")
	for _, p := range projects {
		lastCrawl := "never"
		if p.LastCrawlAt != nil {
			lastCrawl = p.LastCrawlAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			p.Name, p.Status, p.SuccessfulPages, p.TotalEmbeddings, lastCrawl, p.SourceURL)
	}
	return w.Flush()
}
