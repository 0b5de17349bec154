package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/handlers"
	"github.com/ternarybob/docbro/internal/models"
	"github.com/ternarybob/docbro/internal/services/batch"
)

var (
	crawlURL       string
	crawlMaxPages  int
	crawlRateLimit float64
	crawlDepth     int
	crawlUpdate    bool
	crawlAll       bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [name]",
	Short: "Crawl a project's documentation site",
	Long: `Crawls the named project. With --all --update, recrawls every project
sequentially, continuing past per-project failures.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlURL, "url", "", "Override the project's seed URL for this crawl")
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "Page budget override")
	crawlCmd.Flags().Float64Var(&crawlRateLimit, "rate-limit", 0, "Requests per second per origin")
	crawlCmd.Flags().IntVar(&crawlDepth, "depth", -1, "Crawl depth override")
	crawlCmd.Flags().BoolVar(&crawlUpdate, "update", false, "Recrawl even when the project already has content")
	crawlCmd.Flags().BoolVar(&crawlAll, "all", false, "Crawl every project (requires --update)")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if crawlAll && !crawlUpdate {
		return fmt.Errorf("--all requires --update")
	}
	if crawlAll && len(args) > 0 {
		return fmt.Errorf("--all does not take a project name")
	}
	if !crawlAll && len(args) != 1 {
		return fmt.Errorf("project name is required (or use --all --update)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	common.PrintBanner(common.GetVersion())

	var projects []*models.Project
	if crawlAll {
		projects, err = application.Store.ProjectStorage().ListProjects(ctx)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		if len(projects) == 0 {
			return fmt.Errorf("no projects to crawl")
		}
	} else {
		project, err := application.Store.ProjectStorage().GetProjectByName(ctx, args[0])
		if err != nil {
			return fmt.Errorf("project not found: %s (create it first)", args[0])
		}
		if project.Status == models.ProjectStatusReady && !crawlUpdate {
			return fmt.Errorf("project %q already crawled; use --update to recrawl", project.Name)
		}
		if crawlURL != "" && crawlURL != project.SourceURL {
			project.SourceURL = crawlURL
			if err := project.Validate(); err != nil {
				return err
			}
			if err := application.Store.ProjectStorage().StoreProject(ctx, project); err != nil {
				return fmt.Errorf("failed to update seed URL: %w", err)
			}
		}
		projects = []*models.Project{project}
	}

	go func() {
		<-ctx.Done()
		application.Orchestrator.Cancel()
	}()

	summary, err := application.Orchestrator.CrawlAll(ctx, projects, batch.Options{
		MaxPages:        crawlMaxPages,
		RateLimit:       crawlRateLimit,
		Depth:           crawlDepth,
		ContinueOnError: crawlAll,
		Progress:        handlers.NewLogProgress(logger),
	})
	if err != nil {
		return err
	}

	printSummary(summary)
	// A returned error reaches main's exit-1 path after the deferred Close
	// has released the store.
	return batchError(summary)
}

// batchError maps the batch outcome onto the command's exit status: any
// failed project exits nonzero.
func batchError(summary *models.BatchSummary) error {
	if summary.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d project crawls failed", summary.Failed, summary.Attempted)
}

// printSummary renders the completion banner plus per-project outcomes and
// the latest report path for anything that recorded errors.
func printSummary(summary *models.BatchSummary) {
	verdict := "SUCCESS"
	switch {
	case summary.Succeeded == 0 && summary.Failed > 0:
		verdict = "FAILED"
	case summary.Failed > 0:
		verdict = "PARTIAL"
	}

	fmt.Println()
	fmt.Printf("=== CRAWL %s ===\n", verdict)
	fmt.Printf("Projects: %d attempted, %d succeeded, %d failed\n", summary.Attempted, summary.Succeeded, summary.Failed)
	fmt.Printf("Pages:    %d crawled", summary.TotalPages)
	if summary.TotalEmbeddings > 0 {
		fmt.Printf(", %d embeddings", summary.TotalEmbeddings)
	}
	fmt.Println()
	fmt.Printf("Duration: %s\n", summary.Duration.Round(time.Millisecond))

	for _, failure := range summary.Failures {
		fmt.Printf("  FAILED %s: %s\n", failure.Name, failure.Message)
		if path := latestReportPath(failure.Name); path != "" {
			fmt.Printf("         report: %s\n", path)
		}
	}
}

func latestReportPath(projectName string) string {
	dir, err := common.ReportsDir(config.DataDir, projectName)
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "report_latest.txt")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
