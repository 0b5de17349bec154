package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus represents the state of a crawl session
type SessionStatus string

const (
	SessionStatusCreated   SessionStatus = "created"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// DefaultMaxErrors is the error budget applied when a session does not set
// its own: the session stops accepting work after this many recorded errors.
const DefaultMaxErrors = 50

// sessionTransitions encodes the legal status machine:
// created -> running <-> paused -> {completed | failed | cancelled}.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusCreated: {SessionStatusRunning},
	SessionStatusRunning: {SessionStatusPaused, SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusPaused:  {SessionStatusRunning, SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled},
}

// CrawlSession represents one crawl attempt against a project. Configuration
// is snapshot at session creation time so a session is self-contained and
// re-runnable; counters are the persisted source of truth for resumption.
type CrawlSession struct {
	ID        string `json:"id"` // session_{uuid}
	ProjectID string `json:"project_id"`

	// Configuration snapshot
	CrawlDepth int           `json:"crawl_depth"`
	UserAgent  string        `json:"user_agent"`
	RateLimit  float64       `json:"rate_limit"` // Requests per second per origin, > 0
	Timeout    time.Duration `json:"timeout"`    // Per-request HTTP timeout
	MaxPages   int           `json:"max_pages"`
	MaxErrors  int           `json:"max_errors"` // Error budget before the worker stops

	Status       SessionStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`

	// Counters
	PagesDiscovered int    `json:"pages_discovered"`
	PagesCrawled    int    `json:"pages_crawled"`
	PagesFailed     int    `json:"pages_failed"`
	PagesSkipped    int    `json:"pages_skipped"`
	TotalBytes      int64  `json:"total_bytes"`
	CurrentDepth    int    `json:"current_depth"`
	CurrentURL      string `json:"current_url,omitempty"`
	QueueSize       int    `json:"queue_size"`
	ErrorCount      int    `json:"error_count"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CanTransitionTo reports whether the status machine permits a move to the
// target status.
func (s *CrawlSession) CanTransitionTo(target SessionStatus) bool {
	for _, allowed := range sessionTransitions[s.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s *CrawlSession) transition(target SessionStatus) error {
	if !s.CanTransitionTo(target) {
		return fmt.Errorf("invalid session transition: %s -> %s", s.Status, target)
	}
	s.Status = target
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Start moves the session from created to running and stamps started_at.
func (s *CrawlSession) Start() error {
	if err := s.transition(SessionStatusRunning); err != nil {
		return err
	}
	if s.StartedAt == nil {
		now := time.Now().UTC()
		s.StartedAt = &now
	}
	return nil
}

// Pause moves a running session to paused.
func (s *CrawlSession) Pause() error {
	return s.transition(SessionStatusPaused)
}

// Resume moves a paused session back to running.
func (s *CrawlSession) Resume() error {
	if s.Status != SessionStatusPaused {
		return fmt.Errorf("cannot resume session in status %s", s.Status)
	}
	return s.transition(SessionStatusRunning)
}

// Complete marks the session completed and stamps completed_at. An exhausted
// error budget still completes the session; only an escaped worker failure
// fails it.
func (s *CrawlSession) Complete() error {
	if err := s.transition(SessionStatusCompleted); err != nil {
		return err
	}
	s.stampCompleted()
	return nil
}

// Fail marks the session failed with a message and stamps completed_at.
func (s *CrawlSession) Fail(msg string) error {
	if err := s.transition(SessionStatusFailed); err != nil {
		return err
	}
	s.ErrorMessage = msg
	s.stampCompleted()
	return nil
}

// Cancel marks the session cancelled and stamps completed_at.
func (s *CrawlSession) Cancel() error {
	if err := s.transition(SessionStatusCancelled); err != nil {
		return err
	}
	s.stampCompleted()
	return nil
}

func (s *CrawlSession) stampCompleted() {
	if s.CompletedAt == nil {
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
}

// IsTerminal reports whether the session reached a final status.
func (s *CrawlSession) IsTerminal() bool {
	switch s.Status {
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the session is running or paused.
func (s *CrawlSession) IsActive() bool {
	return s.Status == SessionStatusRunning || s.Status == SessionStatusPaused
}

// Duration returns elapsed time between start and completion, or since start
// for a live session.
func (s *CrawlSession) Duration() time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	if s.CompletedAt != nil {
		return s.CompletedAt.Sub(*s.StartedAt)
	}
	return time.Since(*s.StartedAt)
}

// CheckCounters verifies the accounting invariant
// pages_crawled + pages_failed + pages_skipped <= pages_discovered.
func (s *CrawlSession) CheckCounters() error {
	processed := s.PagesCrawled + s.PagesFailed + s.PagesSkipped
	if processed > s.PagesDiscovered {
		return fmt.Errorf("session counters out of balance: crawled=%d failed=%d skipped=%d discovered=%d",
			s.PagesCrawled, s.PagesFailed, s.PagesSkipped, s.PagesDiscovered)
	}
	return nil
}

// ErrorBudgetExhausted reports whether the session recorded at least its
// maximum error count.
func (s *CrawlSession) ErrorBudgetExhausted() bool {
	maxErrors := s.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	return s.ErrorCount >= maxErrors
}

// ToJSON serializes the session for storage snapshots and API responses.
func (s *CrawlSession) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SessionFromJSON deserializes a session from its JSON form.
func SessionFromJSON(data string) (*CrawlSession, error) {
	var session CrawlSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}
