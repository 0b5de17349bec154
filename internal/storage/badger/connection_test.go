package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/models"
)

func TestNewBadgerDB_RequiresPath(t *testing.T) {
	if _, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{}); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestNewBadgerDB_ResetOnStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	logger := arbor.NewLogger()

	store, err := NewManager(logger, &common.BadgerConfig{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	now := time.Now().UTC()
	project := &models.Project{
		ID:        "proj_reset",
		Name:      "docs",
		SourceURL: "https://docs.example.com/",
		Status:    models.ProjectStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.ProjectStorage().StoreProject(context.Background(), project); err != nil {
		t.Fatalf("store project: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewManager(logger, &common.BadgerConfig{Path: path, ResetOnStartup: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.ProjectStorage().GetProject(context.Background(), "proj_reset"); err == nil {
		t.Error("project survived reset_on_startup")
	}
}
