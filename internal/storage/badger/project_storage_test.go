package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/models"
)

func TestProjectStorage_CRUD(t *testing.T) {
	db := newTestDB(t)
	storage := NewProjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	project := &models.Project{
		ID:         "proj_test-1",
		Name:       "godocs",
		SourceURL:  "https://go.dev/doc/",
		CrawlDepth: 2,
		Status:     models.ProjectStatusCreated,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := storage.StoreProject(ctx, project); err != nil {
		t.Fatalf("Failed to store project: %v", err)
	}

	got, err := storage.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("Failed to get project: %v", err)
	}
	if got.Name != "godocs" || got.SourceURL != project.SourceURL {
		t.Errorf("GetProject: got %+v", got)
	}

	byName, err := storage.GetProjectByName(ctx, "godocs")
	if err != nil {
		t.Fatalf("Failed to get project by name: %v", err)
	}
	if byName.ID != project.ID {
		t.Errorf("GetProjectByName: got ID %q, want %q", byName.ID, project.ID)
	}

	if _, err := storage.GetProjectByName(ctx, "nope"); err == nil {
		t.Error("GetProjectByName for missing project: got nil error")
	}

	count, err := storage.CountProjects(ctx)
	if err != nil {
		t.Fatalf("Failed to count projects: %v", err)
	}
	if count != 1 {
		t.Errorf("CountProjects: got %d, want 1", count)
	}

	if err := storage.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("Failed to delete project: %v", err)
	}
	if _, err := storage.GetProject(ctx, project.ID); err == nil {
		t.Error("GetProject after delete: got nil error")
	}
}

func TestProjectStorage_ListSortedByName(t *testing.T) {
	db := newTestDB(t)
	storage := NewProjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mike"} {
		p := &models.Project{
			ID:        "proj_" + name,
			Name:      name,
			SourceURL: "https://" + name + ".example.com/",
			Status:    models.ProjectStatusCreated,
			CreatedAt: time.Now().UTC(),
		}
		if err := storage.StoreProject(ctx, p); err != nil {
			t.Fatalf("Failed to store project %s: %v", name, err)
		}
	}

	projects, err := storage.ListProjects(ctx)
	if err != nil {
		t.Fatalf("Failed to list projects: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("ListProjects: got %d, want 3", len(projects))
	}
	want := []string{"alpha", "mike", "zeta"}
	for i, p := range projects {
		if p.Name != want[i] {
			t.Errorf("ListProjects[%d]: got %q, want %q", i, p.Name, want[i])
		}
	}
}

func TestProjectStorage_UpdateStatistics(t *testing.T) {
	db := newTestDB(t)
	storage := NewProjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	project := &models.Project{
		ID:        "proj_stats",
		Name:      "godocs",
		SourceURL: "https://go.dev/doc/",
		Status:    models.ProjectStatusReady,
		CreatedAt: time.Now().UTC(),
	}
	if err := storage.StoreProject(ctx, project); err != nil {
		t.Fatalf("Failed to store project: %v", err)
	}

	stats := models.ProjectStats{
		LastCrawlAt:     time.Now().UTC(),
		TotalPages:      42,
		TotalSize:       1 << 20,
		SuccessfulPages: 40,
		FailedPages:     2,
		TotalEmbeddings: 180,
	}
	if err := storage.UpdateProjectStatistics(ctx, project.ID, stats); err != nil {
		t.Fatalf("Failed to update statistics: %v", err)
	}

	got, err := storage.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("Failed to get project: %v", err)
	}
	if got.TotalPages != 42 || got.SuccessfulPages != 40 || got.FailedPages != 2 || got.TotalEmbeddings != 180 {
		t.Errorf("statistics: got %+v", got)
	}
	if got.LastCrawlAt == nil {
		t.Error("LastCrawlAt: got nil, want set")
	}

	if err := storage.UpdateProjectStatistics(ctx, "proj_missing", stats); err == nil {
		t.Error("UpdateProjectStatistics for missing project: got nil error")
	}
}
