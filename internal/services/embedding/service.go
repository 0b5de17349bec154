package embedding

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
	"google.golang.org/genai"
)

// Service chunks crawled pages, embeds the chunks with Gemini and persists
// them as Documents. It implements interfaces.VectorIndexer. Without an API
// key the service runs degraded: indexing is skipped with a notice and
// search returns an error.
type Service struct {
	store   interfaces.StorageManager
	config  *common.EmbeddingConfig
	logger  arbor.ILogger
	client  *genai.Client
	chunker *Chunker
}

// NewService builds the embedding service. The API key comes from the
// GEMINI_API_KEY environment variable, falling back to the config file; a
// missing key is not an error.
func NewService(ctx context.Context, store interfaces.StorageManager, config *common.EmbeddingConfig, logger arbor.ILogger) (*Service, error) {
	service := &Service{
		store:   store,
		config:  config,
		logger:  logger,
		chunker: NewChunker(config.MaxChunkSize, config.MinChunkSize),
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = config.APIKey
	}
	if apiKey == "" {
		logger.Warn().Msg("No Gemini API key configured; embedding and search are disabled")
		return service, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	service.client = client
	return service, nil
}

// Enabled reports whether an API key was configured.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// IndexProject chunks every processed page of the project's latest session
// and indexes the chunks under the project. It satisfies the batch
// orchestrator's indexer contract and returns the number of embeddings
// stored.
func (s *Service) IndexProject(ctx context.Context, project *models.Project, progress interfaces.ProgressSink) (int, error) {
	if !s.Enabled() {
		s.logger.Info().Str("project", project.Name).Msg("Indexing skipped: embedding disabled")
		return 0, nil
	}

	session, err := s.store.SessionStorage().GetLatestSession(ctx, project.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load latest session: %w", err)
	}
	pages, err := s.store.PageStorage().GetPagesByStatus(ctx, session.ID, models.PageStatusProcessed)
	if err != nil {
		return 0, fmt.Errorf("failed to load processed pages: %w", err)
	}
	if len(pages) == 0 {
		return 0, nil
	}

	if progress != nil {
		progress.ShowEmbeddingStatus(s.config.Model, project.Name, interfaces.EmbeddingStateInitializing)
	}

	// Reindex from scratch so removed pages do not leave stale chunks.
	if err := s.store.DocumentStorage().DeleteDocumentsByProject(ctx, project.ID); err != nil {
		return 0, fmt.Errorf("failed to clear project documents: %w", err)
	}

	var docs []*models.Document
	for _, page := range pages {
		source := page.Markdown
		if source == "" {
			source = page.Text
		}
		for i, chunk := range s.chunker.Chunk(source) {
			docs = append(docs, &models.Document{
				ID:         common.NewDocumentID(),
				ProjectID:  project.ID,
				PageID:     page.ID,
				URL:        page.URL,
				Title:      page.Title,
				Heading:    chunk.Heading,
				Content:    chunk.Content,
				ChunkIndex: i,
				CreatedAt:  time.Now().UTC(),
			})
		}
	}

	if progress != nil {
		progress.ShowEmbeddingStatus(s.config.Model, project.Name, interfaces.EmbeddingStateProcessing)
	}
	count, err := s.IndexDocuments(ctx, project.ID, docs, nil)
	if err != nil {
		if progress != nil {
			progress.ShowEmbeddingStatus(s.config.Model, project.Name, interfaces.EmbeddingStateError)
		}
		return 0, err
	}

	// Stamp the pages so a later session can tell indexed content apart.
	for _, page := range pages {
		if err := page.MarkIndexed(); err != nil {
			continue
		}
		if err := s.store.PageStorage().StorePage(ctx, page); err != nil {
			s.logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to persist indexed page")
		}
	}

	if progress != nil {
		progress.ShowEmbeddingStatus(s.config.Model, project.Name, interfaces.EmbeddingStateComplete)
	}
	return count, nil
}

// IndexDocuments embeds the documents in batches and stores them under the
// collection (a project id). Documents are stored only after their batch
// embedded successfully.
func (s *Service) IndexDocuments(ctx context.Context, collection string, docs []*models.Document, progress interfaces.EmbeddingProgressFunc) (int, error) {
	if !s.Enabled() {
		s.logger.Info().Str("collection", collection).Msg("Indexing skipped: embedding disabled")
		return 0, nil
	}
	if len(docs) == 0 {
		return 0, nil
	}

	emit := func(event interfaces.EmbeddingEvent) {
		if progress != nil {
			event.Collection = collection
			progress(event)
		}
	}
	emit(interfaces.EmbeddingEvent{Kind: interfaces.EmbeddingEventIndexingStarted, Total: len(docs)})

	batchSize := s.config.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	stored := 0
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		vectors, err := s.embedBatch(ctx, batch)
		if err != nil {
			emit(interfaces.EmbeddingEvent{Kind: interfaces.EmbeddingEventIndexingFailed, Current: stored, Total: len(docs), Message: err.Error()})
			return stored, err
		}
		for i, doc := range batch {
			doc.Vector = vectors[i]
			doc.EmbeddingModel = s.config.Model
		}
		emit(interfaces.EmbeddingEvent{Kind: interfaces.EmbeddingEventEmbeddingProgress, Current: end, Total: len(docs)})

		emit(interfaces.EmbeddingEvent{Kind: interfaces.EmbeddingEventStoringEmbeddings, Current: end, Total: len(docs)})
		if err := s.store.DocumentStorage().StoreDocuments(ctx, batch); err != nil {
			emit(interfaces.EmbeddingEvent{Kind: interfaces.EmbeddingEventIndexingFailed, Current: stored, Total: len(docs), Message: err.Error()})
			return stored, fmt.Errorf("failed to store documents: %w", err)
		}
		stored += len(batch)
	}

	emit(interfaces.EmbeddingEvent{Kind: interfaces.EmbeddingEventIndexingCompleted, Current: stored, Total: len(docs)})
	s.logger.Info().
		Str("collection", collection).
		Int("documents", stored).
		Str("model", s.config.Model).
		Msg("Documents indexed")
	return stored, nil
}

// embedBatch sends one EmbedContent call for a slice of documents and
// returns the vectors in document order.
func (s *Service) embedBatch(ctx context.Context, batch []*models.Document) ([][]float32, error) {
	contents := make([]*genai.Content, len(batch))
	for i, doc := range batch {
		contents[i] = genai.NewContentFromText(doc.Content, genai.RoleUser)
	}

	result, err := s.client.Models.EmbedContent(ctx, s.config.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(batch) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), got)
	}

	vectors := make([][]float32, len(batch))
	for i, embedding := range result.Embeddings {
		vectors[i] = embedding.Values
	}
	return vectors, nil
}

// SearchDocuments embeds the query and scans the collection's documents for
// the topK nearest by cosine similarity.
func (s *Service) SearchDocuments(ctx context.Context, collection, query string, topK int) ([]*models.SearchResult, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("search requires a Gemini API key (set GEMINI_API_KEY)")
	}
	if topK <= 0 {
		topK = 5
	}

	result, err := s.client.Models.EmbedContent(ctx, s.config.Model,
		[]*genai.Content{genai.NewContentFromText(query, genai.RoleUser)}, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	queryVector := result.Embeddings[0].Values

	docs, err := s.store.DocumentStorage().GetDocumentsByProject(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(docs))
	for _, doc := range docs {
		if !doc.HasVector() {
			continue
		}
		results = append(results, &models.SearchResult{
			Document: doc,
			Score:    CosineSimilarity(queryVector, doc.Vector),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// CosineSimilarity returns the cosine of the angle between two vectors, or
// zero when either has no magnitude or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
