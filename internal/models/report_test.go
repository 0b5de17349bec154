package models

import (
	"testing"
	"time"
)

func TestDeriveReportStatus(t *testing.T) {
	tests := []struct {
		name      string
		succeeded int
		failed    int
		want      ReportStatus
	}{
		{"all success", 10, 0, ReportStatusSuccess},
		{"single success", 1, 0, ReportStatusSuccess},
		{"mixed", 7, 3, ReportStatusPartial},
		{"one of each", 1, 1, ReportStatusPartial},
		{"all failed", 0, 5, ReportStatusFailed},
		{"nothing attempted", 0, 0, ReportStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveReportStatus(tt.succeeded, tt.failed); got != tt.want {
				t.Errorf("DeriveReportStatus(%d, %d): got %v, want %v", tt.succeeded, tt.failed, got, tt.want)
			}
		})
	}
}

func TestCrawlReport_Lifecycle(t *testing.T) {
	r := NewCrawlReport("project-1", "godocs")
	if r.Status != ReportStatusPending {
		t.Errorf("initial Status: got %v, want %v", r.Status, ReportStatusPending)
	}

	r.Begin("session-1")
	if r.Status != ReportStatusInProgress {
		t.Errorf("Status after Begin: got %v, want %v", r.Status, ReportStatusInProgress)
	}
	if r.StartedAt == nil {
		t.Fatal("StartedAt: got nil, want set")
	}
	if r.SessionID != "session-1" {
		t.Errorf("SessionID: got %q", r.SessionID)
	}

	session := newTestSession()
	if err := session.Start(); err != nil {
		t.Fatalf("Start: unexpected error %v", err)
	}
	session.PagesCrawled = 8
	session.PagesFailed = 2
	session.PagesSkipped = 1
	session.TotalBytes = 65536
	if err := session.Complete(); err != nil {
		t.Fatalf("Complete: unexpected error %v", err)
	}

	r.Finish(session)
	if r.Status != ReportStatusPartial {
		t.Errorf("Status: got %v, want %v", r.Status, ReportStatusPartial)
	}
	if r.PagesCrawled != 8 || r.PagesFailed != 2 || r.PagesSkipped != 1 {
		t.Errorf("counters: got crawled=%d failed=%d skipped=%d", r.PagesCrawled, r.PagesFailed, r.PagesSkipped)
	}
	if r.TotalBytes != 65536 {
		t.Errorf("TotalBytes: got %d, want 65536", r.TotalBytes)
	}
	if r.CompletedAt == nil {
		t.Error("CompletedAt: got nil, want set")
	}
	if r.Duration < 0 {
		t.Errorf("Duration: got %v, want >= 0", r.Duration)
	}
	if !r.Succeeded() {
		t.Error("Succeeded: got false, want true for partial report")
	}
}

func TestCrawlReport_FailedSessionOverridesCounters(t *testing.T) {
	r := NewCrawlReport("project-1", "godocs")
	r.Begin("session-1")

	// Pages succeeded before the worker failed, but a failed session is a
	// failed report.
	session := newTestSession()
	if err := session.Start(); err != nil {
		t.Fatalf("Start: unexpected error %v", err)
	}
	session.PagesCrawled = 4
	if err := session.Fail("worker panic"); err != nil {
		t.Fatalf("Fail: unexpected error %v", err)
	}

	r.Finish(session)
	if r.Status != ReportStatusFailed {
		t.Errorf("Status: got %v, want %v", r.Status, ReportStatusFailed)
	}
	if r.Succeeded() {
		t.Error("Succeeded: got true, want false for failed report")
	}
}

func TestCrawlReport_FinishError(t *testing.T) {
	r := NewCrawlReport("", "missing-project")
	r.Begin("")
	time.Sleep(time.Millisecond)
	r.FinishError(errNotFound{})

	if r.Status != ReportStatusFailed {
		t.Errorf("Status: got %v, want %v", r.Status, ReportStatusFailed)
	}
	if len(r.Errors) != 1 {
		t.Fatalf("Errors: got %d entries, want 1", len(r.Errors))
	}
	if r.Errors[0].Message != "project not found" {
		t.Errorf("error message: got %q", r.Errors[0].Message)
	}
	if r.Duration <= 0 {
		t.Errorf("Duration: got %v, want > 0", r.Duration)
	}
}

func TestCrawlReport_SummarizeErrors(t *testing.T) {
	r := NewCrawlReport("project-1", "godocs")
	r.Errors = []*ErrorEntry{
		{URL: "https://h/a", Kind: ErrorKindNetwork, Message: "connection refused"},
		{URL: "https://h/a", Kind: ErrorKindTimeout, Message: "deadline exceeded"},
		{URL: "https://h/b", Kind: ErrorKindParse, Message: "unsupported content type"},
		{Kind: ErrorKindValidation, Message: "bad seed"},
	}

	s := r.SummarizeErrors()
	if s.ByKind[ErrorKindNetwork] != 1 || s.ByKind[ErrorKindTimeout] != 1 || s.ByKind[ErrorKindParse] != 1 || s.ByKind[ErrorKindValidation] != 1 {
		t.Errorf("ByKind: got %+v", s.ByKind)
	}
	if s.UniqueURLs != 2 {
		t.Errorf("UniqueURLs: got %d, want 2", s.UniqueURLs)
	}
	if s.Retryable != 2 {
		t.Errorf("Retryable: got %d, want 2", s.Retryable)
	}
	if r.Summary != s {
		t.Error("Summary not attached to report")
	}
}

type errNotFound struct{}

func (errNotFound) Error() string { return "project not found" }
