package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
	"github.com/ternarybob/docbro/internal/services/crawler"
)

// APIHandler serves the JSON API used by the serve command. Crawls started
// over the API stream progress through the websocket hub.
type APIHandler struct {
	store    interfaces.StorageManager
	engine   *crawler.Engine
	searcher interfaces.VectorIndexer
	hub      *WebSocketHub
	logger   arbor.ILogger
}

func NewAPIHandler(store interfaces.StorageManager, engine *crawler.Engine, searcher interfaces.VectorIndexer, hub *WebSocketHub, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		store:    store,
		engine:   engine,
		searcher: searcher,
		hub:      hub,
		logger:   logger,
	}
}

// Register wires the API routes onto the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", h.HealthHandler)
	mux.HandleFunc("/api/version", h.VersionHandler)
	mux.HandleFunc("/api/projects", h.ProjectsHandler)
	mux.HandleFunc("/api/projects/", h.ProjectHandler)
	mux.HandleFunc("/api/crawl/", h.CrawlHandler)
	mux.HandleFunc("/api/search", h.SearchHandler)
	mux.HandleFunc("/ws", h.hub.HandleWebSocket)
	mux.HandleFunc("/", h.NotFoundHandler)
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"ws_clients": h.hub.ClientCount(),
	})
}

func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
	})
}

// ProjectsHandler lists all projects.
func (h *APIHandler) ProjectsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	projects, err := h.store.ProjectStorage().ListProjects(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list projects")
		WriteError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	})
}

// ProjectHandler returns one project by name, including its latest session.
func (h *APIHandler) ProjectHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "project name is required")
		return
	}

	project, err := h.store.ProjectStorage().GetProjectByName(r.Context(), name)
	if err != nil {
		WriteError(w, http.StatusNotFound, "project not found: "+name)
		return
	}

	response := map[string]interface{}{"project": project}
	if session, err := h.store.SessionStorage().GetLatestSession(r.Context(), project.ID); err == nil {
		response["latest_session"] = session
	}
	WriteJSON(w, http.StatusOK, response)
}

// CrawlHandler starts a crawl for the named project. One crawl runs at a
// time; a busy engine answers 409.
func (h *APIHandler) CrawlHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/crawl/")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "project name is required")
		return
	}

	project, err := h.store.ProjectStorage().GetProjectByName(r.Context(), name)
	if err != nil {
		WriteError(w, http.StatusNotFound, "project not found: "+name)
		return
	}
	if h.engine.Running() {
		WriteError(w, http.StatusConflict, "a crawl is already running")
		return
	}

	session, err := h.engine.StartCrawl(context.Background(), project.ID, crawler.CrawlOptions{
		Depth:    -1,
		Progress: NewWSProgress(h.hub),
	})
	if err != nil {
		h.logger.Error().Err(err).Str("project", name).Msg("Failed to start crawl")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	project.MarkCrawling()
	if err := h.store.ProjectStorage().StoreProject(context.Background(), project); err != nil {
		h.logger.Warn().Err(err).Str("project", name).Msg("Failed to persist crawling status")
	}
	go h.finishProject(project, session.ID)

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":     "started",
		"session_id": session.ID,
		"project":    name,
	})
}

// finishProject waits for the API-started crawl and settles the project
// status the way the CLI orchestrator would.
func (h *APIHandler) finishProject(project *models.Project, sessionID string) {
	<-h.engine.Done()
	ctx := context.Background()

	session, err := h.store.SessionStorage().GetSession(ctx, sessionID)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load finished session")
		return
	}

	if session.Status == models.SessionStatusCompleted {
		project.ApplyStats(models.ProjectStats{
			LastCrawlAt:     session.UpdatedAt,
			TotalPages:      session.PagesCrawled + session.PagesFailed + session.PagesSkipped,
			TotalSize:       session.TotalBytes,
			SuccessfulPages: session.PagesCrawled,
			FailedPages:     session.PagesFailed,
			TotalEmbeddings: project.TotalEmbeddings,
		})
		project.MarkReady()
	} else {
		msg := session.ErrorMessage
		if msg == "" {
			msg = "session ended " + string(session.Status)
		}
		project.MarkError(msg)
	}
	if err := h.store.ProjectStorage().StoreProject(ctx, project); err != nil {
		h.logger.Error().Err(err).Str("project", project.Name).Msg("Failed to persist project status")
	}
}

// SearchHandler answers /api/search?project=NAME&q=QUERY&limit=N.
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	projectName := r.URL.Query().Get("project")
	query := r.URL.Query().Get("q")
	if projectName == "" || query == "" {
		WriteError(w, http.StatusBadRequest, "project and q parameters are required")
		return
	}
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}

	project, err := h.store.ProjectStorage().GetProjectByName(r.Context(), projectName)
	if err != nil {
		WriteError(w, http.StatusNotFound, "project not found: "+projectName)
		return
	}

	results, err := h.searcher.SearchDocuments(r.Context(), project.ID, query, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project": projectName,
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error": "not found",
		"path":  r.URL.Path,
	})
}
