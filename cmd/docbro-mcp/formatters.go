package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/docbro/internal/models"
)

// formatSearchResults renders search hits as markdown, best first.
func formatSearchResults(query string, results []*models.SearchResult, projectByID map[string]string) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for %q. The project may not be indexed yet; crawl it with embedding enabled.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Search results for %q\n\n", query)
	for i, result := range results {
		doc := result.Document
		title := doc.Title
		if doc.Heading != "" {
			title = doc.Heading
		}
		if title == "" {
			title = doc.URL
		}
		fmt.Fprintf(&b, "## %d. %s (score %.3f)\n\n", i+1, title, result.Score)
		if name := projectByID[doc.ProjectID]; name != "" {
			fmt.Fprintf(&b, "Project: %s  \n", name)
		}
		fmt.Fprintf(&b, "Source: %s\n\n", doc.URL)
		b.WriteString(doc.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// formatProjectList renders the project table as markdown.
func formatProjectList(projects []*models.Project) string {
	if len(projects) == 0 {
		return "No projects. Create one with: docbro create <name> --url <url>"
	}

	var b strings.Builder
	b.WriteString("# Documentation projects\n\n")
	b.WriteString("| Name | Status | Pages | Embeddings | Last crawl |\n")
	b.WriteString("|------|--------|-------|------------|------------|\n")
	for _, p := range projects {
		lastCrawl := "never"
		if p.LastCrawlAt != nil {
			lastCrawl = p.LastCrawlAt.UTC().Format(time.DateTime)
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s |\n",
			p.Name, p.Status, p.SuccessfulPages, p.TotalEmbeddings, lastCrawl)
	}
	return b.String()
}

// formatProjectStatus renders one project's detail view as markdown.
func formatProjectStatus(project *models.Project, session *models.CrawlSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Project: %s\n\n", project.Name)
	fmt.Fprintf(&b, "- Status: %s\n", project.Status)
	if project.StatusMessage != "" {
		fmt.Fprintf(&b, "- Message: %s\n", project.StatusMessage)
	}
	fmt.Fprintf(&b, "- Source: %s\n", project.SourceURL)
	fmt.Fprintf(&b, "- Crawl depth: %d\n", project.CrawlDepth)
	fmt.Fprintf(&b, "- Pages: %d total, %d successful, %d failed\n",
		project.TotalPages, project.SuccessfulPages, project.FailedPages)
	fmt.Fprintf(&b, "- Embeddings: %d\n", project.TotalEmbeddings)
	fmt.Fprintf(&b, "- Size: %d bytes\n", project.TotalSize)
	if project.LastCrawlAt != nil {
		fmt.Fprintf(&b, "- Last crawl: %s\n", project.LastCrawlAt.UTC().Format(time.RFC3339))
	}

	if session != nil {
		b.WriteString("\n## Latest session\n\n")
		fmt.Fprintf(&b, "- ID: %s\n", session.ID)
		fmt.Fprintf(&b, "- Status: %s\n", session.Status)
		fmt.Fprintf(&b, "- Crawled %d, failed %d, skipped %d\n",
			session.PagesCrawled, session.PagesFailed, session.PagesSkipped)
		fmt.Fprintf(&b, "- Errors: %d\n", session.ErrorCount)
		fmt.Fprintf(&b, "- Duration: %s\n", session.Duration().Round(time.Second))
		if session.ErrorMessage != "" {
			fmt.Fprintf(&b, "- Error: %s\n", session.ErrorMessage)
		}
	}
	return b.String()
}
