package interfaces

import (
	"context"

	"github.com/ternarybob/docbro/internal/models"
)

// EmbeddingEventKind names the phases reported while indexing documents
type EmbeddingEventKind string

const (
	EmbeddingEventIndexingStarted   EmbeddingEventKind = "indexing_started"
	EmbeddingEventEmbeddingProgress EmbeddingEventKind = "embedding_progress"
	EmbeddingEventStoringEmbeddings EmbeddingEventKind = "storing_embeddings"
	EmbeddingEventIndexingCompleted EmbeddingEventKind = "indexing_completed"
	EmbeddingEventIndexingFailed    EmbeddingEventKind = "indexing_failed"
)

// EmbeddingEvent is one progress notification from the indexing pipeline.
type EmbeddingEvent struct {
	Kind       EmbeddingEventKind `json:"kind"`
	Collection string             `json:"collection"`
	Current    int                `json:"current"`
	Total      int                `json:"total"`
	Message    string             `json:"message,omitempty"`
}

// EmbeddingProgressFunc receives indexing events; nil callbacks are allowed.
type EmbeddingProgressFunc func(event EmbeddingEvent)

// VectorIndexer - interface for embedding and retrieving document chunks.
// The crawl core depends on this interface only; backends decide the model
// and store.
type VectorIndexer interface {
	// IndexDocuments embeds the documents and stores their vectors under
	// the collection, reporting progress through the callback. It returns
	// the number of embeddings stored.
	IndexDocuments(ctx context.Context, collection string, docs []*models.Document, progress EmbeddingProgressFunc) (int, error)

	// SearchDocuments embeds the query and returns the topK most similar
	// documents in the collection, best first.
	SearchDocuments(ctx context.Context, collection, query string, topK int) ([]*models.SearchResult, error)
}
