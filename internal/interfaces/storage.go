package interfaces

import (
	"context"

	"github.com/ternarybob/docbro/internal/models"
)

// ProjectStorage - interface for project persistence
type ProjectStorage interface {
	StoreProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	CountProjects(ctx context.Context) (int, error)
	UpdateProjectStatistics(ctx context.Context, id string, stats models.ProjectStats) error
}

// SessionStorage - interface for crawl session and error entry persistence.
// Error entries are session-scoped and live with their session.
type SessionStorage interface {
	// Session operations
	StoreSession(ctx context.Context, session *models.CrawlSession) error
	GetSession(ctx context.Context, id string) (*models.CrawlSession, error)
	GetSessionsByProject(ctx context.Context, projectID string) ([]*models.CrawlSession, error)
	GetLatestSession(ctx context.Context, projectID string) (*models.CrawlSession, error)
	GetActiveSessions(ctx context.Context) ([]*models.CrawlSession, error)
	DeleteSessionsByProject(ctx context.Context, projectID string) error
	CountSessions(ctx context.Context) (int, error)

	// Error entry operations
	StoreError(ctx context.Context, entry *models.ErrorEntry) error
	GetErrorsBySession(ctx context.Context, sessionID string) ([]*models.ErrorEntry, error)
	CountErrorsBySession(ctx context.Context, sessionID string) (int, error)
	DeleteErrorsBySession(ctx context.Context, sessionID string) error
}

// PageStorage - interface for page persistence. Pages carry both session and
// project references; they survive session deletion.
type PageStorage interface {
	StorePage(ctx context.Context, page *models.Page) error
	GetPage(ctx context.Context, id string) (*models.Page, error)
	GetPageByURL(ctx context.Context, sessionID, url string) (*models.Page, error)
	GetPagesBySession(ctx context.Context, sessionID string) ([]*models.Page, error)
	GetPagesByStatus(ctx context.Context, sessionID string, status models.PageStatus) ([]*models.Page, error)
	GetPagesByProject(ctx context.Context, projectID string) ([]*models.Page, error)
	CountPagesBySession(ctx context.Context, sessionID string) (int, error)
	DeletePagesBySession(ctx context.Context, sessionID string) error
	DeletePagesByProject(ctx context.Context, projectID string) error
}

// DocumentStorage - interface for embedded document chunk persistence
type DocumentStorage interface {
	StoreDocument(ctx context.Context, doc *models.Document) error
	StoreDocuments(ctx context.Context, docs []*models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentsByProject(ctx context.Context, projectID string) ([]*models.Document, error)
	DeleteDocumentsByProject(ctx context.Context, projectID string) error
	DeleteDocumentsByPage(ctx context.Context, pageID string) error
	CountDocumentsByProject(ctx context.Context, projectID string) (int, error)
	GetDocumentStats(ctx context.Context, projectID string) (*models.DocumentStats, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	ProjectStorage() ProjectStorage
	SessionStorage() SessionStorage
	PageStorage() PageStorage
	DocumentStorage() DocumentStorage
	DB() interface{}
	Close() error
}
