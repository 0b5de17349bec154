package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
)

func textError(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf(format, args...)),
		},
	}
}

// handleSearchDocumentation implements the search_documentation tool.
func handleSearchDocumentation(store interfaces.StorageManager, searcher interfaces.VectorIndexer, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return textError("Error: query parameter is required"), nil
		}
		limit := request.GetInt("limit", 5)
		if limit > 20 {
			limit = 20
		}
		projectName := request.GetString("project", "")

		var projects []*models.Project
		if projectName != "" {
			project, err := store.ProjectStorage().GetProjectByName(ctx, projectName)
			if err != nil {
				return textError("Project not found: %s", projectName), nil
			}
			projects = []*models.Project{project}
		} else {
			projects, err = store.ProjectStorage().ListProjects(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to list projects")
				return textError("Error listing projects: %v", err), nil
			}
		}

		nameByID := make(map[string]string, len(projects))
		var results []*models.SearchResult
		for _, project := range projects {
			nameByID[project.ID] = project.Name
			found, err := searcher.SearchDocuments(ctx, project.ID, query, limit)
			if err != nil {
				logger.Error().Err(err).Str("project", project.Name).Msg("Search failed")
				return textError("Search error: %v", err), nil
			}
			results = append(results, found...)
		}
		sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
		if len(results) > limit {
			results = results[:limit]
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatSearchResults(query, results, nameByID)),
			},
		}, nil
	}
}

// handleListProjects implements the list_projects tool.
func handleListProjects(store interfaces.StorageManager, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projects, err := store.ProjectStorage().ListProjects(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list projects")
			return textError("Error listing projects: %v", err), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatProjectList(projects)),
			},
		}, nil
	}
}

// handleProjectStatus implements the project_status tool.
func handleProjectStatus(store interfaces.StorageManager, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil || name == "" {
			return textError("Error: name parameter is required"), nil
		}

		project, err := store.ProjectStorage().GetProjectByName(ctx, name)
		if err != nil {
			return textError("Project not found: %s", name), nil
		}

		var session *models.CrawlSession
		if latest, err := store.SessionStorage().GetLatestSession(ctx, project.ID); err == nil {
			session = latest
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatProjectStatus(project, session)),
			},
		}, nil
	}
}
