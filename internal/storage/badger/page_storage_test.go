package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/models"
)

func storeTestPage(t *testing.T, storage *PageStorage, id, sessionID, projectID, url string, status models.PageStatus, discoveredAt time.Time) *models.Page {
	t.Helper()
	page := &models.Page{
		ID:           id,
		SessionID:    sessionID,
		ProjectID:    projectID,
		URL:          url,
		Status:       status,
		DiscoveredAt: discoveredAt,
	}
	if err := storage.StorePage(context.Background(), page); err != nil {
		t.Fatalf("Failed to store page %s: %v", id, err)
	}
	return page
}

func TestPageStorage_Queries(t *testing.T) {
	db := newTestDB(t)
	storage := NewPageStorage(db, arbor.NewLogger()).(*PageStorage)
	ctx := context.Background()

	base := time.Now().UTC()
	storeTestPage(t, storage, "page_1", "session_1", "proj_a", "https://h/a", models.PageStatusProcessed, base)
	storeTestPage(t, storage, "page_2", "session_1", "proj_a", "https://h/b", models.PageStatusFailed, base.Add(time.Second))
	storeTestPage(t, storage, "page_3", "session_1", "proj_a", "https://h/c", models.PageStatusProcessed, base.Add(2*time.Second))
	storeTestPage(t, storage, "page_4", "session_2", "proj_b", "https://h/d", models.PageStatusDiscovered, base.Add(3*time.Second))

	bySession, err := storage.GetPagesBySession(ctx, "session_1")
	if err != nil {
		t.Fatalf("Failed to get pages by session: %v", err)
	}
	if len(bySession) != 3 {
		t.Fatalf("GetPagesBySession: got %d, want 3", len(bySession))
	}
	// Discovery order.
	for i, wantID := range []string{"page_1", "page_2", "page_3"} {
		if bySession[i].ID != wantID {
			t.Errorf("page order[%d]: got %s, want %s", i, bySession[i].ID, wantID)
		}
	}

	processed, err := storage.GetPagesByStatus(ctx, "session_1", models.PageStatusProcessed)
	if err != nil {
		t.Fatalf("Failed to get pages by status: %v", err)
	}
	if len(processed) != 2 {
		t.Errorf("GetPagesByStatus(processed): got %d, want 2", len(processed))
	}

	byURL, err := storage.GetPageByURL(ctx, "session_1", "https://h/b")
	if err != nil {
		t.Fatalf("Failed to get page by URL: %v", err)
	}
	if byURL.ID != "page_2" {
		t.Errorf("GetPageByURL: got %s, want page_2", byURL.ID)
	}
	if _, err := storage.GetPageByURL(ctx, "session_1", "https://h/zzz"); err == nil {
		t.Error("GetPageByURL for missing URL: got nil error")
	}

	byProject, err := storage.GetPagesByProject(ctx, "proj_a")
	if err != nil {
		t.Fatalf("Failed to get pages by project: %v", err)
	}
	if len(byProject) != 3 {
		t.Errorf("GetPagesByProject: got %d, want 3", len(byProject))
	}

	count, err := storage.CountPagesBySession(ctx, "session_1")
	if err != nil {
		t.Fatalf("Failed to count pages: %v", err)
	}
	if count != 3 {
		t.Errorf("CountPagesBySession: got %d, want 3", count)
	}
}

func TestPageStorage_PagesSurviveSessionDeletion(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	pages := NewPageStorage(db, logger).(*PageStorage)
	sessions := NewSessionStorage(db, logger).(*SessionStorage)
	ctx := context.Background()

	storeTestSession(t, sessions, "session_1", "proj_a", models.SessionStatusCompleted, time.Now().UTC())
	storeTestPage(t, pages, "page_1", "session_1", "proj_a", "https://h/a", models.PageStatusProcessed, time.Now().UTC())

	// Deleting sessions does not cascade to pages; the project still owns
	// them.
	if err := sessions.DeleteSessionsByProject(ctx, "proj_a"); err != nil {
		t.Fatalf("Failed to delete sessions: %v", err)
	}
	byProject, err := pages.GetPagesByProject(ctx, "proj_a")
	if err != nil {
		t.Fatalf("Failed to get pages by project: %v", err)
	}
	if len(byProject) != 1 {
		t.Errorf("pages after session delete: got %d, want 1", len(byProject))
	}

	if err := pages.DeletePagesByProject(ctx, "proj_a"); err != nil {
		t.Fatalf("Failed to delete pages by project: %v", err)
	}
	byProject, _ = pages.GetPagesByProject(ctx, "proj_a")
	if len(byProject) != 0 {
		t.Errorf("pages after project delete: got %d, want 0", len(byProject))
	}
}

func TestPageStorage_PersistsContent(t *testing.T) {
	db := newTestDB(t)
	storage := NewPageStorage(db, arbor.NewLogger()).(*PageStorage)
	ctx := context.Background()

	page := storeTestPage(t, storage, "page_1", "session_1", "proj_a", "https://h/a", models.PageStatusDiscovered, time.Now().UTC())
	if err := page.MarkCrawling(); err != nil {
		t.Fatalf("MarkCrawling: %v", err)
	}
	if err := page.MarkProcessed(models.PageContent{
		HTTPStatus:  200,
		ContentType: "text/html",
		Title:       "A",
		Text:        "alpha content",
		SizeBytes:   13,
		Links:       []string{"https://h/b", "https://h/c"},
	}); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	page.InternalLinks = []string{"https://h/b"}
	page.ExternalLinks = []string{"https://other/x"}
	if err := storage.StorePage(ctx, page); err != nil {
		t.Fatalf("Failed to update page: %v", err)
	}

	got, err := storage.GetPage(ctx, "page_1")
	if err != nil {
		t.Fatalf("Failed to get page: %v", err)
	}
	if got.Status != models.PageStatusProcessed || got.Title != "A" {
		t.Errorf("persisted page: got status=%v title=%q", got.Status, got.Title)
	}
	if got.ContentHash != models.ComputeContentHash("alpha content") {
		t.Errorf("ContentHash not persisted: got %q", got.ContentHash)
	}
	if len(got.Links) != 2 || len(got.InternalLinks) != 1 || len(got.ExternalLinks) != 1 {
		t.Errorf("links not persisted: got %d/%d/%d", len(got.Links), len(got.InternalLinks), len(got.ExternalLinks))
	}
}
