package models

import (
	"encoding/json"
	"time"
)

// ReportStatus summarizes the outcome of one project's crawl
type ReportStatus string

const (
	ReportStatusSuccess    ReportStatus = "success"
	ReportStatusPartial    ReportStatus = "partial"
	ReportStatusFailed     ReportStatus = "failed"
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusInProgress ReportStatus = "in_progress"
)

// DeriveReportStatus computes the outcome label from page counts: every page
// succeeded and at least one was crawled means success, a mix means partial,
// only failures means failed, and nothing attempted yet means pending.
func DeriveReportStatus(succeeded, failed int) ReportStatus {
	switch {
	case succeeded > 0 && failed == 0:
		return ReportStatusSuccess
	case succeeded > 0 && failed > 0:
		return ReportStatusPartial
	case failed > 0:
		return ReportStatusFailed
	default:
		return ReportStatusPending
	}
}

// ErrorSummary tallies a report's errors by kind plus distinct failing URLs.
type ErrorSummary struct {
	ByKind     map[ErrorKind]int `json:"by_kind"`
	UniqueURLs int               `json:"unique_urls"`
	Retryable  int               `json:"retryable"`
}

// CrawlReport aggregates the outcome of one crawl session for persistence
// and for the per-project entries of a batch summary.
type CrawlReport struct {
	ProjectID   string       `json:"project_id"`
	ProjectName string       `json:"project_name"`
	SessionID   string       `json:"session_id,omitempty"`
	Status      ReportStatus `json:"status"`

	PagesCrawled int   `json:"pages_crawled"`
	PagesFailed  int   `json:"pages_failed"`
	PagesSkipped int   `json:"pages_skipped"`
	TotalBytes   int64 `json:"total_bytes"`

	Errors         []*ErrorEntry `json:"errors,omitempty"`
	ErrorsOverflow int           `json:"errors_overflow,omitempty"` // Errors dropped beyond the cap
	Summary        *ErrorSummary `json:"summary,omitempty"`

	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// SummarizeErrors recomputes the per-kind tallies from the recorded entries.
func (r *CrawlReport) SummarizeErrors() *ErrorSummary {
	summary := &ErrorSummary{ByKind: make(map[ErrorKind]int)}
	urls := make(map[string]bool)
	for _, e := range r.Errors {
		summary.ByKind[e.Kind]++
		if e.IsRetryable() {
			summary.Retryable++
		}
		if e.URL != "" {
			urls[e.URL] = true
		}
	}
	summary.UniqueURLs = len(urls)
	r.Summary = summary
	return summary
}

// NewCrawlReport creates a pending report for a project before its crawl
// begins.
func NewCrawlReport(projectID, projectName string) *CrawlReport {
	return &CrawlReport{
		ProjectID:   projectID,
		ProjectName: projectName,
		Status:      ReportStatusPending,
	}
}

// Begin marks the report in progress and stamps its start time.
func (r *CrawlReport) Begin(sessionID string) {
	now := time.Now().UTC()
	r.SessionID = sessionID
	r.Status = ReportStatusInProgress
	r.StartedAt = &now
}

// Finish copies the session counters into the report, derives the final
// status and stamps completion. A session that failed outright overrides the
// page-count derivation.
func (r *CrawlReport) Finish(session *CrawlSession) {
	now := time.Now().UTC()
	r.PagesCrawled = session.PagesCrawled
	r.PagesFailed = session.PagesFailed
	r.PagesSkipped = session.PagesSkipped
	r.TotalBytes = session.TotalBytes
	r.CompletedAt = &now
	if r.StartedAt != nil {
		r.Duration = now.Sub(*r.StartedAt)
	}
	if session.Status == SessionStatusFailed {
		r.Status = ReportStatusFailed
		return
	}
	r.Status = DeriveReportStatus(session.PagesCrawled, session.PagesFailed)
}

// FinishError marks the report failed when no session could be produced at
// all, for example when the project does not exist.
func (r *CrawlReport) FinishError(err error) {
	now := time.Now().UTC()
	r.Status = ReportStatusFailed
	r.CompletedAt = &now
	if r.StartedAt != nil {
		r.Duration = now.Sub(*r.StartedAt)
	}
	if err != nil {
		entry := &ErrorEntry{
			Kind:       ErrorKindUnknown,
			Message:    err.Error(),
			OccurredAt: now,
		}
		if runes := []rune(entry.Message); len(runes) > MaxErrorMessageLen {
			entry.Message = string(runes[:MaxErrorMessageLen])
		}
		r.Errors = append(r.Errors, entry)
	}
}

// Succeeded reports whether the crawl produced at least one processed page.
func (r *CrawlReport) Succeeded() bool {
	return r.Status == ReportStatusSuccess || r.Status == ReportStatusPartial
}

// ToJSON serializes the report.
func (r *CrawlReport) ToJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
