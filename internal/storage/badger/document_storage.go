package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) StoreDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) StoreDocuments(ctx context.Context, docs []*models.Document) error {
	for _, doc := range docs {
		if err := s.StoreDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("document not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) GetDocumentsByProject(ctx context.Context, projectID string) ([]*models.Document, error) {
	var docs []models.Document
	if err := s.db.Store().Find(&docs, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return nil, fmt.Errorf("failed to get documents by project: %w", err)
	}
	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

func (s *DocumentStorage) DeleteDocumentsByProject(ctx context.Context, projectID string) error {
	if err := s.db.Store().DeleteMatching(&models.Document{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete documents by project: %w", err)
	}
	return nil
}

func (s *DocumentStorage) DeleteDocumentsByPage(ctx context.Context, pageID string) error {
	if err := s.db.Store().DeleteMatching(&models.Document{}, badgerhold.Where("PageID").Eq(pageID)); err != nil {
		return fmt.Errorf("failed to delete documents by page: %w", err)
	}
	return nil
}

func (s *DocumentStorage) CountDocumentsByProject(ctx context.Context, projectID string) (int, error) {
	count, err := s.db.Store().Count(&models.Document{}, badgerhold.Where("ProjectID").Eq(projectID))
	if err != nil {
		return 0, fmt.Errorf("failed to count documents by project: %w", err)
	}
	return int(count), nil
}

func (s *DocumentStorage) GetDocumentStats(ctx context.Context, projectID string) (*models.DocumentStats, error) {
	docs, err := s.GetDocumentsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stats := &models.DocumentStats{
		TotalDocuments: len(docs),
		LastUpdated:    time.Now().UTC(),
	}
	totalSize := 0
	for _, doc := range docs {
		if doc.HasVector() {
			stats.EmbeddedDocuments++
		}
		totalSize += len(doc.Content)
	}
	if len(docs) > 0 {
		stats.AverageContentSize = totalSize / len(docs)
	}
	return stats, nil
}
