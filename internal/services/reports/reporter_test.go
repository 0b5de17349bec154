package reports

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/models"
)

func TestReporter_RecordsErrors(t *testing.T) {
	r := NewReporter("proj_1", "docs", t.TempDir(), 50, arbor.NewLogger())
	r.Begin("sess_1")

	assert.False(t, r.HasErrors(), "fresh reporter should have no errors")

	r.AddError("https://h/a", models.ErrorKindNetwork, "connection refused", 0, 2, false)
	r.AddError("https://h/b", models.ErrorKindPermission, "forbidden", 403, 0, false)

	assert.True(t, r.HasErrors())

	report := r.Report()
	require.Len(t, report.Errors, 2)
	assert.Equal(t, "sess_1", report.Errors[0].SessionID)
	assert.Equal(t, 2, report.Errors[0].RetryCount)
	assert.Equal(t, 403, report.Errors[1].HTTPStatus)
}

func TestReporter_CapAndOverflow(t *testing.T) {
	r := NewReporter("proj_1", "docs", t.TempDir(), 3, arbor.NewLogger())
	r.Begin("sess_1")

	for i := 0; i < 10; i++ {
		r.AddError("https://h/x", models.ErrorKindNetwork, "boom", 500, 0, false)
	}

	report := r.Report()
	assert.Len(t, report.Errors, 3)
	assert.Equal(t, 7, report.ErrorsOverflow)
}

func TestReporter_IncludeTrace(t *testing.T) {
	r := NewReporter("proj_1", "docs", t.TempDir(), 10, arbor.NewLogger())
	r.Begin("sess_1")
	r.AddError("https://h/a", models.ErrorKindUnknown, "panic recovered", 0, 0, true)

	report := r.Report()
	require.Len(t, report.Errors, 1)
	assert.NotEmpty(t, report.Errors[0].StackTrace)
}

func TestReporter_FinishDerivesStatus(t *testing.T) {
	started := time.Now().UTC().Add(-time.Minute)
	completed := time.Now().UTC()
	session := &models.CrawlSession{
		Status:       models.SessionStatusCompleted,
		PagesCrawled: 8,
		PagesFailed:  2,
		PagesSkipped: 1,
		TotalBytes:   4096,
		StartedAt:    &started,
		CompletedAt:  &completed,
	}

	r := NewReporter("proj_1", "docs", t.TempDir(), 50, arbor.NewLogger())
	r.Begin("sess_1")
	r.AddError("https://h/a", models.ErrorKindTimeout, "deadline exceeded", 0, 1, false)
	r.Finish(session)

	report := r.Report()
	assert.Equal(t, models.ReportStatusPartial, report.Status)
	assert.Equal(t, 8, report.PagesCrawled)
	assert.Equal(t, 2, report.PagesFailed)
	assert.Equal(t, 1, report.PagesSkipped)
	require.NotNil(t, report.Summary)
	assert.Equal(t, 1, report.Summary.ByKind[models.ErrorKindTimeout])
	assert.Equal(t, 1, report.Summary.Retryable)
}

func TestReporter_FinishError(t *testing.T) {
	r := NewReporter("proj_1", "docs", t.TempDir(), 50, arbor.NewLogger())
	r.FinishError(os.ErrNotExist)

	report := r.Report()
	assert.Equal(t, models.ReportStatusFailed, report.Status)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, models.ErrorKindUnknown, report.Errors[0].Kind)
}

func TestReporter_SaveReportWritesPair(t *testing.T) {
	dataDir := t.TempDir()
	r := NewReporter("proj_1", "My Docs", dataDir, 50, arbor.NewLogger())
	r.Begin("sess_1")
	r.AddError("https://h/a", models.ErrorKindNetwork, "server error", 500, 0, false)

	completed := time.Now().UTC()
	started := completed.Add(-30 * time.Second)
	r.Finish(&models.CrawlSession{
		Status:       models.SessionStatusCompleted,
		PagesCrawled: 5,
		PagesFailed:  1,
		StartedAt:    &started,
		CompletedAt:  &completed,
	})

	jsonPath, textPath, err := r.SaveReport()
	require.NoError(t, err)

	assert.Equal(t, ".json", filepath.Ext(jsonPath))
	assert.Equal(t, ".txt", filepath.Ext(textPath))
	assert.True(t, strings.HasPrefix(filepath.Base(jsonPath), "report_"), "json name: %s", filepath.Base(jsonPath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var loaded models.CrawlReport
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, "My Docs", loaded.ProjectName)
	assert.Len(t, loaded.Errors, 1)

	// Latest copies live alongside the timestamped files.
	dir := filepath.Dir(jsonPath)
	for _, name := range []string{"report_latest.json", "report_latest.txt"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "missing %s", name)
	}
}

func TestFormatText(t *testing.T) {
	completed := time.Now().UTC()
	started := completed.Add(-time.Minute)
	report := models.NewCrawlReport("proj_1", "docs")
	report.Begin("sess_1")
	report.StartedAt = &started
	report.Errors = append(report.Errors, mustEntry(t, "https://h/broken", models.ErrorKindNetwork, "internal server error", 500))
	report.Errors = append(report.Errors, mustEntry(t, "https://h/forbidden", models.ErrorKindPermission, "forbidden", 403))
	report.ErrorsOverflow = 2
	report.Finish(&models.CrawlSession{
		Status:       models.SessionStatusCompleted,
		PagesCrawled: 3,
		PagesFailed:  2,
		StartedAt:    &started,
		CompletedAt:  &completed,
	})
	report.SummarizeErrors()

	text := FormatText(report)

	for _, want := range []string{
		"CRAWL REPORT: docs",
		"Status:      PARTIAL",
		"Pages crawled: 3",
		"ERROR SUMMARY",
		"network:",
		"permission:",
		"(HTTP 500)",
		"https://h/broken",
		"severity=high",
		"2 further errors not recorded",
	} {
		assert.Contains(t, text, want)
	}
}

func TestFormatText_NoErrors(t *testing.T) {
	report := models.NewCrawlReport("proj_1", "docs")
	report.Status = models.ReportStatusSuccess
	text := FormatText(report)
	assert.Contains(t, text, "No errors recorded.")
}

func mustEntry(t *testing.T, url string, kind models.ErrorKind, msg string, status int) *models.ErrorEntry {
	t.Helper()
	entry, err := models.NewErrorEntry("err_1", "sess_1", url, kind, msg, status)
	require.NoError(t, err)
	return entry
}
