package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/services/embedding"
	"github.com/ternarybob/docbro/internal/storage/badger"
)

func main() {
	configPath := os.Getenv("DOCBRO_CONFIG")

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	dataDir, err := common.ResolveDataDir(config.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve data directory: %v\n", err)
		os.Exit(1)
	}
	config.DataDir = dataDir
	if config.Storage.Badger.Path == "" {
		config.Storage.Badger.Path = dataDir + "/db"
	}

	// Console-only, warn level: stdio belongs to the MCP protocol.
	logger := arbor.NewLogger().WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}).WithLevelFromString("warn")

	store, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	embeddingService, err := embedding.NewService(context.Background(), store, &config.Embedding, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize embedding service")
	}

	mcpServer := server.NewMCPServer(
		"docbro",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createSearchDocumentationTool(), handleSearchDocumentation(store, embeddingService, logger))
	mcpServer.AddTool(createListProjectsTool(), handleListProjects(store, logger))
	mcpServer.AddTool(createProjectStatusTool(), handleProjectStatus(store, logger))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
