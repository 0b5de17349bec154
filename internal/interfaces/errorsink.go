package interfaces

import "github.com/ternarybob/docbro/internal/models"

// ErrorSink collects crawl errors for a single project run and writes the
// final report pair. The engine records through it without knowing where
// reports land.
type ErrorSink interface {
	// AddError records one failure. httpStatus may be zero when no response
	// was received; includeTrace attaches a goroutine stack to the entry.
	AddError(url string, kind models.ErrorKind, message string, httpStatus, retryCount int, includeTrace bool)

	// HasErrors reports whether anything was recorded.
	HasErrors() bool

	// SaveReport writes the JSON and text report files and returns their
	// paths.
	SaveReport() (jsonPath, textPath string, err error)
}
