package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// BatchStatus represents the state of a multi-project crawl batch
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// BatchFailure records one project that could not be crawled.
type BatchFailure struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// BatchOperation tracks a sequential crawl over several projects. Finished
// projects land in either Completed or Failed; together they always form a
// prefix of ProjectNames, and CurrentIndex counts them.
type BatchOperation struct {
	ID              string         `json:"id"` // batch_{uuid}
	ProjectNames    []string       `json:"project_names"`
	CurrentIndex    int            `json:"current_index"`
	Completed       []string       `json:"completed"`
	Failed          []BatchFailure `json:"failed"`
	ContinueOnError bool           `json:"continue_on_error"`

	TotalPages      int `json:"total_pages"`
	TotalEmbeddings int `json:"total_embeddings"`

	Status       BatchStatus `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// NewBatchOperation creates a pending batch over the given project names.
// Duplicate names are rejected because a batch must attempt each project
// exactly once.
func NewBatchOperation(id string, projectNames []string, continueOnError bool) (*BatchOperation, error) {
	if len(projectNames) == 0 {
		return nil, fmt.Errorf("batch requires at least one project")
	}
	seen := make(map[string]bool, len(projectNames))
	for _, name := range projectNames {
		if seen[name] {
			return nil, fmt.Errorf("duplicate project in batch: %s", name)
		}
		seen[name] = true
	}
	return &BatchOperation{
		ID:              id,
		ProjectNames:    projectNames,
		Completed:       []string{},
		Failed:          []BatchFailure{},
		ContinueOnError: continueOnError,
		Status:          BatchStatusPending,
	}, nil
}

// Begin marks the batch running and stamps its start time.
func (b *BatchOperation) Begin() {
	now := time.Now().UTC()
	b.Status = BatchStatusRunning
	b.StartedAt = &now
}

// advance enforces the prefix invariant: outcomes are recorded strictly in
// project order.
func (b *BatchOperation) advance(name string) error {
	if b.CurrentIndex >= len(b.ProjectNames) {
		return fmt.Errorf("batch already complete: index %d of %d", b.CurrentIndex, len(b.ProjectNames))
	}
	if current := b.ProjectNames[b.CurrentIndex]; name != current {
		return fmt.Errorf("outcome for %q does not match current project %q", name, current)
	}
	b.CurrentIndex++
	return nil
}

// MarkCompleted records a successful project crawl and its totals.
func (b *BatchOperation) MarkCompleted(name string, pages, embeddings int) error {
	if err := b.advance(name); err != nil {
		return err
	}
	b.Completed = append(b.Completed, name)
	b.TotalPages += pages
	b.TotalEmbeddings += embeddings
	return nil
}

// MarkFailed records a project that could not be crawled.
func (b *BatchOperation) MarkFailed(name, message string) error {
	if err := b.advance(name); err != nil {
		return err
	}
	b.Failed = append(b.Failed, BatchFailure{Name: name, Message: message})
	return nil
}

// IsComplete reports whether every project has an outcome.
func (b *BatchOperation) IsComplete() bool {
	return b.CurrentIndex == len(b.ProjectNames)
}

// CurrentProject returns the name of the project being crawled, or "" when
// the batch is complete.
func (b *BatchOperation) CurrentProject() string {
	if b.CurrentIndex >= len(b.ProjectNames) {
		return ""
	}
	return b.ProjectNames[b.CurrentIndex]
}

// EstimatedCompletion projects the finish time from the average duration of
// finished projects. It returns false until at least one project finished or
// once the batch is complete.
func (b *BatchOperation) EstimatedCompletion() (time.Time, bool) {
	if b.StartedAt == nil || b.CurrentIndex == 0 || b.IsComplete() {
		return time.Time{}, false
	}
	elapsed := time.Since(*b.StartedAt)
	perProject := elapsed / time.Duration(b.CurrentIndex)
	remaining := time.Duration(len(b.ProjectNames)-b.CurrentIndex) * perProject
	return time.Now().UTC().Add(remaining), true
}

// Finish stamps completion and derives the final status: completed when every
// project was attempted, cancelled when stopped early without an error,
// failed when stopped early because continue_on_error was off.
func (b *BatchOperation) Finish() {
	now := time.Now().UTC()
	b.CompletedAt = &now
	switch {
	case b.IsComplete():
		b.Status = BatchStatusCompleted
	case len(b.Failed) > 0 && !b.ContinueOnError:
		b.Status = BatchStatusFailed
		b.ErrorMessage = b.Failed[len(b.Failed)-1].Message
	default:
		b.Status = BatchStatusCancelled
	}
}

// BatchSummary aggregates a finished batch for display and logging.
type BatchSummary struct {
	BatchID         string         `json:"batch_id"`
	Total           int            `json:"total"`
	Attempted       int            `json:"attempted"`
	Succeeded       int            `json:"succeeded"`
	Failed          int            `json:"failed"`
	Failures        []BatchFailure `json:"failures,omitempty"`
	TotalPages      int            `json:"total_pages"`
	TotalEmbeddings int            `json:"total_embeddings"`
	Duration        time.Duration  `json:"duration"`
}

// Summarize folds the batch outcomes into totals.
func (b *BatchOperation) Summarize() *BatchSummary {
	summary := &BatchSummary{
		BatchID:         b.ID,
		Total:           len(b.ProjectNames),
		Attempted:       b.CurrentIndex,
		Succeeded:       len(b.Completed),
		Failed:          len(b.Failed),
		Failures:        b.Failed,
		TotalPages:      b.TotalPages,
		TotalEmbeddings: b.TotalEmbeddings,
	}
	if b.StartedAt != nil && b.CompletedAt != nil {
		summary.Duration = b.CompletedAt.Sub(*b.StartedAt)
	}
	return summary
}

// ToJSON serializes the batch.
func (b *BatchOperation) ToJSON() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
