package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/docbro/internal/models"
)

const reportTimeFormat = "20060102_150405"

// WriteReport writes the report as report_<UTC timestamp>.json and .txt in
// dir, refreshes the report_latest.{json,txt} copies, and returns the two
// timestamped paths.
func WriteReport(dir string, report *models.CrawlReport) (string, string, error) {
	stamp := time.Now().UTC()
	if report.CompletedAt != nil {
		stamp = report.CompletedAt.UTC()
	}
	base := "report_" + stamp.Format(reportTimeFormat)

	jsonPath := filepath.Join(dir, base+".json")
	textPath := filepath.Join(dir, base+".txt")

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal report: %w", err)
	}
	textData := []byte(FormatText(report))

	if err := os.WriteFile(jsonPath, jsonData, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.WriteFile(textPath, textData, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write report: %w", err)
	}

	// Best effort: a stale latest copy is not worth failing the crawl over.
	_ = os.WriteFile(filepath.Join(dir, "report_latest.json"), jsonData, 0644)
	_ = os.WriteFile(filepath.Join(dir, "report_latest.txt"), textData, 0644)

	return jsonPath, textPath, nil
}

// FormatText renders the human-readable report: header, statistics, error
// summary by kind, then per-error details.
func FormatText(report *models.CrawlReport) string {
	var b strings.Builder

	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "CRAWL REPORT: %s\n", report.ProjectName)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Status:      %s\n", strings.ToUpper(string(report.Status)))
	if report.SessionID != "" {
		fmt.Fprintf(&b, "Session:     %s\n", report.SessionID)
	}
	if report.StartedAt != nil {
		fmt.Fprintf(&b, "Started:     %s\n", report.StartedAt.UTC().Format(time.RFC3339))
	}
	if report.CompletedAt != nil {
		fmt.Fprintf(&b, "Completed:   %s\n", report.CompletedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Duration:    %s\n", report.Duration.Round(time.Millisecond))

	b.WriteString("\nSTATISTICS\n")
	fmt.Fprintf(&b, "  Pages crawled: %d\n", report.PagesCrawled)
	fmt.Fprintf(&b, "  Pages failed:  %d\n", report.PagesFailed)
	fmt.Fprintf(&b, "  Pages skipped: %d\n", report.PagesSkipped)
	fmt.Fprintf(&b, "  Total bytes:   %d\n", report.TotalBytes)

	if len(report.Errors) == 0 && report.ErrorsOverflow == 0 {
		b.WriteString("\nNo errors recorded.\n")
		return b.String()
	}

	summary := report.Summary
	if summary == nil {
		summary = report.SummarizeErrors()
	}
	b.WriteString("\nERROR SUMMARY\n")
	for _, kind := range sortedKinds(summary.ByKind) {
		fmt.Fprintf(&b, "  %-12s %d\n", string(kind)+":", summary.ByKind[kind])
	}
	fmt.Fprintf(&b, "  Unique URLs: %d, retryable: %d\n", summary.UniqueURLs, summary.Retryable)

	total := len(report.Errors) + report.ErrorsOverflow
	fmt.Fprintf(&b, "\nERRORS (%d of %d)\n", len(report.Errors), total)
	for i, entry := range report.Errors {
		fmt.Fprintf(&b, "  [%d] %s", i+1, entry.Kind)
		if entry.HTTPStatus != 0 {
			fmt.Fprintf(&b, " (HTTP %d)", entry.HTTPStatus)
		}
		fmt.Fprintf(&b, " severity=%s\n", entry.Severity())
		if entry.URL != "" {
			fmt.Fprintf(&b, "      URL:  %s\n", entry.URL)
		}
		fmt.Fprintf(&b, "      %s\n", entry.Message)
		if entry.RetryCount > 0 {
			fmt.Fprintf(&b, "      Retries: %d\n", entry.RetryCount)
		}
	}
	if report.ErrorsOverflow > 0 {
		fmt.Fprintf(&b, "  ... %d further errors not recorded\n", report.ErrorsOverflow)
	}

	return b.String()
}

func sortedKinds(byKind map[models.ErrorKind]int) []models.ErrorKind {
	kinds := make([]models.ErrorKind, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
