package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrorKind classifies a crawl error for retry and severity decisions
type ErrorKind string

const (
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindParse      ErrorKind = "parse"
	ErrorKindTimeout    ErrorKind = "timeout"
	ErrorKindPermission ErrorKind = "permission"
	ErrorKindRateLimit  ErrorKind = "rate_limit"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindUnknown    ErrorKind = "unknown"
)

// ErrorSeverity buckets error kinds for report ordering
type ErrorSeverity string

const (
	SeverityHigh   ErrorSeverity = "high"
	SeverityMedium ErrorSeverity = "medium"
	SeverityLow    ErrorSeverity = "low"
)

// MaxErrorMessageLen caps stored error messages; longer ones are truncated.
const MaxErrorMessageLen = 500

// ErrorEntry records one failure encountered during a crawl session.
type ErrorEntry struct {
	ID         string    `json:"id"` // err_{uuid}
	SessionID  string    `json:"session_id"`
	URL        string    `json:"url,omitempty"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"` // 100-599 when set
	RetryCount int       `json:"retry_count,omitempty"`
	StackTrace string    `json:"stack_trace,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewErrorEntry builds a validated entry, truncating the message to
// MaxErrorMessageLen runes and defaulting an unrecognized kind to unknown.
func NewErrorEntry(id, sessionID, url string, kind ErrorKind, message string, httpStatus int) (*ErrorEntry, error) {
	if message == "" {
		return nil, fmt.Errorf("error message is required")
	}
	if httpStatus != 0 && (httpStatus < 100 || httpStatus > 599) {
		return nil, fmt.Errorf("invalid HTTP status code: %d", httpStatus)
	}
	if runes := []rune(message); len(runes) > MaxErrorMessageLen {
		message = string(runes[:MaxErrorMessageLen])
	}
	switch kind {
	case ErrorKindNetwork, ErrorKindParse, ErrorKindTimeout, ErrorKindPermission,
		ErrorKindRateLimit, ErrorKindValidation, ErrorKindUnknown:
	default:
		kind = ErrorKindUnknown
	}
	return &ErrorEntry{
		ID:         id,
		SessionID:  sessionID,
		URL:        url,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// IsRetryable reports whether the failure is worth retrying. Network faults,
// timeouts and rate limiting are transient; everything else is not.
func (e *ErrorEntry) IsRetryable() bool {
	switch e.Kind {
	case ErrorKindNetwork, ErrorKindTimeout, ErrorKindRateLimit:
		return true
	}
	return false
}

// Severity maps the error kind to a report severity bucket.
func (e *ErrorEntry) Severity() ErrorSeverity {
	switch e.Kind {
	case ErrorKindPermission, ErrorKindValidation:
		return SeverityHigh
	case ErrorKindParse, ErrorKindRateLimit:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ToJSON serializes the entry for storage snapshots and reports.
func (e *ErrorEntry) ToJSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
