package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSearchDocumentationTool returns the search_documentation tool
// definition.
func createSearchDocumentationTool() mcp.Tool {
	return mcp.NewTool("search_documentation",
		mcp.WithDescription("Semantic search over crawled documentation. Returns the most relevant chunks with their source URLs."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language search query"),
		),
		mcp.WithString("project",
			mcp.Description("Project name to search; omit to search every project"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 5, max: 20)"),
		),
	)
}

// createListProjectsTool returns the list_projects tool definition.
func createListProjectsTool() mcp.Tool {
	return mcp.NewTool("list_projects",
		mcp.WithDescription("List all documentation projects with their status and page counts"),
	)
}

// createProjectStatusTool returns the project_status tool definition.
func createProjectStatusTool() mcp.Tool {
	return mcp.NewTool("project_status",
		mcp.WithDescription("Show one project's status, statistics and latest crawl session"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
	)
}
