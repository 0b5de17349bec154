package interfaces

import "time"

// EmbeddingState labels the phase reported by ShowEmbeddingStatus
type EmbeddingState string

const (
	EmbeddingStateInitializing EmbeddingState = "initializing"
	EmbeddingStateProcessing   EmbeddingState = "processing"
	EmbeddingStateComplete     EmbeddingState = "complete"
	EmbeddingStateError        EmbeddingState = "error"
)

// OperationStatus labels the outcome reported by CompleteOperation
type OperationStatus string

const (
	OperationStatusSuccess        OperationStatus = "success"
	OperationStatusPartialSuccess OperationStatus = "partial_success"
	OperationStatusFailure        OperationStatus = "failure"
)

// ProgressSink receives crawl progress events. Implementations render them
// as log lines, terminal output, or websocket broadcasts; the crawl engine
// never formats output itself. A no-op implementation satisfies callers that
// do not care.
type ProgressSink interface {
	// StartOperation announces a new operation for a project.
	StartOperation(title, projectName string)

	// UpdateMetrics publishes a counter snapshot. The engine sends keys
	// such as depth, pages_crawled, pages_failed, queue_size and
	// current_url after every dequeue and every successful fetch.
	UpdateMetrics(metrics map[string]interface{})

	// SetCurrentOperation updates the single-line activity description.
	SetCurrentOperation(text string)

	// ShowEmbeddingStatus reports the embedding phase for a project.
	ShowEmbeddingStatus(model, projectName string, state EmbeddingState)

	// ShowEmbeddingError reports a non-fatal embedding failure.
	ShowEmbeddingError(msg string)

	// CompleteOperation closes the operation with its final status.
	CompleteOperation(projectName, kind string, duration time.Duration, metrics map[string]interface{}, status OperationStatus)
}
