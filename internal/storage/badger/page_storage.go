package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PageStorage implements the PageStorage interface for Badger
type PageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPageStorage creates a new PageStorage instance
func NewPageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PageStorage {
	return &PageStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PageStorage) StorePage(ctx context.Context, page *models.Page) error {
	if page.ID == "" {
		return fmt.Errorf("page ID is required")
	}
	if err := s.db.Store().Upsert(page.ID, page); err != nil {
		return fmt.Errorf("failed to store page: %w", err)
	}
	return nil
}

func (s *PageStorage) GetPage(ctx context.Context, id string) (*models.Page, error) {
	var page models.Page
	if err := s.db.Store().Get(id, &page); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("page not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

func (s *PageStorage) GetPageByURL(ctx context.Context, sessionID, url string) (*models.Page, error) {
	var pages []models.Page
	if err := s.db.Store().Find(&pages, badgerhold.Where("SessionID").Eq(sessionID).And("URL").Eq(url).Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to find page by URL: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("page not found: %s", url)
	}
	return &pages[0], nil
}

func (s *PageStorage) GetPagesBySession(ctx context.Context, sessionID string) ([]*models.Page, error) {
	var pages []models.Page
	if err := s.db.Store().Find(&pages, badgerhold.Where("SessionID").Eq(sessionID).SortBy("DiscoveredAt")); err != nil {
		return nil, fmt.Errorf("failed to get pages by session: %w", err)
	}
	result := make([]*models.Page, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (s *PageStorage) GetPagesByStatus(ctx context.Context, sessionID string, status models.PageStatus) ([]*models.Page, error) {
	var pages []models.Page
	if err := s.db.Store().Find(&pages, badgerhold.Where("SessionID").Eq(sessionID).And("Status").Eq(status).SortBy("DiscoveredAt")); err != nil {
		return nil, fmt.Errorf("failed to get pages by status: %w", err)
	}
	result := make([]*models.Page, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (s *PageStorage) GetPagesByProject(ctx context.Context, projectID string) ([]*models.Page, error) {
	var pages []models.Page
	if err := s.db.Store().Find(&pages, badgerhold.Where("ProjectID").Eq(projectID).SortBy("DiscoveredAt")); err != nil {
		return nil, fmt.Errorf("failed to get pages by project: %w", err)
	}
	result := make([]*models.Page, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (s *PageStorage) CountPagesBySession(ctx context.Context, sessionID string) (int, error) {
	count, err := s.db.Store().Count(&models.Page{}, badgerhold.Where("SessionID").Eq(sessionID))
	if err != nil {
		return 0, fmt.Errorf("failed to count pages by session: %w", err)
	}
	return int(count), nil
}

func (s *PageStorage) DeletePagesBySession(ctx context.Context, sessionID string) error {
	if err := s.db.Store().DeleteMatching(&models.Page{}, badgerhold.Where("SessionID").Eq(sessionID)); err != nil {
		return fmt.Errorf("failed to delete pages by session: %w", err)
	}
	return nil
}

func (s *PageStorage) DeletePagesByProject(ctx context.Context, projectID string) error {
	if err := s.db.Store().DeleteMatching(&models.Page{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete pages by project: %w", err)
	}
	return nil
}
