package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	createURL    string
	createDepth  int
	createModel  string
	createImport string
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a documentation project",
	Long: `Creates a project pointing at a documentation site. With --import,
creates every project listed in a YAML manifest instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createURL, "url", "", "Seed URL of the documentation site")
	createCmd.Flags().IntVar(&createDepth, "depth", 2, "Crawl depth")
	createCmd.Flags().StringVar(&createModel, "model", "", "Embedding model override")
	createCmd.Flags().StringVar(&createImport, "import", "", "YAML manifest with projects to create")
}

// manifestEntry is one project in a --import manifest.
type manifestEntry struct {
	Name  string `yaml:"name" validate:"required"`
	URL   string `yaml:"url" validate:"required,url"`
	Depth int    `yaml:"depth"`
	Model string `yaml:"model"`
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	if createImport != "" {
		return importManifest(ctx, application.Store.ProjectStorage(), createImport)
	}

	if len(args) != 1 {
		return fmt.Errorf("project name is required (or use --import)")
	}
	if createURL == "" {
		return fmt.Errorf("--url is required")
	}

	project, err := createProject(ctx, application.Store.ProjectStorage(), manifestEntry{
		Name:  args[0],
		URL:   createURL,
		Depth: createDepth,
		Model: createModel,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created project %q (%s)\n", project.Name, project.SourceURL)
	return nil
}

func importManifest(ctx context.Context, store interfaces.ProjectStorage, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	var entries []manifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("manifest contains no projects")
	}

	validate := validator.New()
	for i, entry := range entries {
		if err := validate.Struct(entry); err != nil {
			return fmt.Errorf("manifest entry %d invalid: %w", i+1, err)
		}
	}

	created := 0
	for _, entry := range entries {
		project, err := createProject(ctx, store, entry)
		if err != nil {
			fmt.Printf("Skipped %q: %v\n", entry.Name, err)
			continue
		}
		fmt.Printf("Created project %q (%s)\n", project.Name, project.SourceURL)
		created++
	}
	fmt.Printf("%d of %d projects created\n", created, len(entries))
	return nil
}

func createProject(ctx context.Context, store interfaces.ProjectStorage, entry manifestEntry) (*models.Project, error) {
	if _, err := store.GetProjectByName(ctx, entry.Name); err == nil {
		return nil, fmt.Errorf("project already exists: %s", entry.Name)
	}

	depth := entry.Depth
	if depth <= 0 {
		depth = config.Crawler.CrawlDepth
	}
	now := time.Now().UTC()
	project := &models.Project{
		ID:             common.NewProjectID(),
		Name:           entry.Name,
		SourceURL:      entry.URL,
		CrawlDepth:     depth,
		EmbeddingModel: entry.Model,
		Status:         models.ProjectStatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	if err := store.StoreProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to store project: %w", err)
	}
	return project, nil
}
