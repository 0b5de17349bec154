package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SessionStorage implements the SessionStorage interface for Badger. Error
// entries are stored alongside sessions because they share a lifetime.
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SessionStorage) StoreSession(ctx context.Context, session *models.CrawlSession) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if err := s.db.Store().Upsert(session.ID, session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *SessionStorage) GetSession(ctx context.Context, id string) (*models.CrawlSession, error) {
	var session models.CrawlSession
	if err := s.db.Store().Get(id, &session); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *SessionStorage) GetSessionsByProject(ctx context.Context, projectID string) ([]*models.CrawlSession, error) {
	var sessions []models.CrawlSession
	if err := s.db.Store().Find(&sessions, badgerhold.Where("ProjectID").Eq(projectID).SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to get sessions by project: %w", err)
	}
	result := make([]*models.CrawlSession, len(sessions))
	for i := range sessions {
		result[i] = &sessions[i]
	}
	return result, nil
}

func (s *SessionStorage) GetLatestSession(ctx context.Context, projectID string) (*models.CrawlSession, error) {
	var sessions []models.CrawlSession
	if err := s.db.Store().Find(&sessions, badgerhold.Where("ProjectID").Eq(projectID).SortBy("CreatedAt").Reverse().Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to get latest session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions for project: %s", projectID)
	}
	return &sessions[0], nil
}

func (s *SessionStorage) GetActiveSessions(ctx context.Context) ([]*models.CrawlSession, error) {
	var sessions []models.CrawlSession
	query := badgerhold.Where("Status").Eq(models.SessionStatusRunning).
		Or(badgerhold.Where("Status").Eq(models.SessionStatusPaused))
	if err := s.db.Store().Find(&sessions, query); err != nil {
		return nil, fmt.Errorf("failed to get active sessions: %w", err)
	}
	result := make([]*models.CrawlSession, len(sessions))
	for i := range sessions {
		result[i] = &sessions[i]
	}
	return result, nil
}

func (s *SessionStorage) DeleteSessionsByProject(ctx context.Context, projectID string) error {
	if err := s.db.Store().DeleteMatching(&models.CrawlSession{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete sessions by project: %w", err)
	}
	return nil
}

func (s *SessionStorage) CountSessions(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.CrawlSession{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return int(count), nil
}

func (s *SessionStorage) StoreError(ctx context.Context, entry *models.ErrorEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("error entry ID is required")
	}
	if err := s.db.Store().Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to store error entry: %w", err)
	}
	return nil
}

func (s *SessionStorage) GetErrorsBySession(ctx context.Context, sessionID string) ([]*models.ErrorEntry, error) {
	var entries []models.ErrorEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("SessionID").Eq(sessionID).SortBy("OccurredAt")); err != nil {
		return nil, fmt.Errorf("failed to get errors by session: %w", err)
	}
	result := make([]*models.ErrorEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}

func (s *SessionStorage) CountErrorsBySession(ctx context.Context, sessionID string) (int, error) {
	count, err := s.db.Store().Count(&models.ErrorEntry{}, badgerhold.Where("SessionID").Eq(sessionID))
	if err != nil {
		return 0, fmt.Errorf("failed to count errors by session: %w", err)
	}
	return int(count), nil
}

func (s *SessionStorage) DeleteErrorsBySession(ctx context.Context, sessionID string) error {
	if err := s.db.Store().DeleteMatching(&models.ErrorEntry{}, badgerhold.Where("SessionID").Eq(sessionID)); err != nil {
		return fmt.Errorf("failed to delete errors by session: %w", err)
	}
	return nil
}
