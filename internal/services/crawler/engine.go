package crawler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
)

// CrawlOptions carries per-run overrides for StartCrawl. Zero values fall
// back to the project's settings and the configured crawler defaults; Depth
// of -1 means "use the project's depth".
type CrawlOptions struct {
	UserAgent string
	RateLimit float64 // Requests per second per origin
	MaxPages  int
	Depth     int
	MaxErrors int
	Timeout   time.Duration

	Progress interfaces.ProgressSink
	Errors   interfaces.ErrorSink
}

// Engine runs one crawl session at a time: it owns the BFS frontier, the
// visited and content-hash sets, the per-session fetcher, robots cache and
// rate limiter, and the single worker goroutine that drains the frontier.
type Engine struct {
	store  interfaces.StorageManager
	config common.CrawlerConfig
	logger arbor.ILogger

	mu      sync.Mutex
	running bool
	session *models.CrawlSession
	project *models.Project
	queue   *frontier
	visited map[string]bool
	hashes  map[string]bool
	fetcher *Fetcher
	robots  *RobotsCache
	limiter *RateLimiter

	progress interfaces.ProgressSink
	errors   interfaces.ErrorSink

	stopFlag  atomic.Bool
	pauseFlag atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewEngine creates an idle crawl engine over the given store.
func NewEngine(store interfaces.StorageManager, config common.CrawlerConfig, logger arbor.ILogger) *Engine {
	return &Engine{
		store:  store,
		config: config,
		logger: logger,
	}
}

// StartCrawl creates and starts a crawl session for a project. The seed URL
// is enqueued before the worker launches so the frontier is never observed
// empty at startup. The returned session is a snapshot taken before the
// worker starts mutating its own copy; poll the store or Done() for current
// state.
func (e *Engine) StartCrawl(ctx context.Context, projectID string, opts CrawlOptions) (*models.CrawlSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil, fmt.Errorf("a crawl is already running (session %s)", e.session.ID)
	}

	project, err := e.store.ProjectStorage().GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	session, err := e.buildSession(project, opts)
	if err != nil {
		return nil, err
	}
	if err := session.Start(); err != nil {
		return nil, err
	}
	if err := e.store.SessionStorage().StoreSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	e.resetState(session, project, opts)

	if !e.queue.Push(queueItem{URL: project.SourceURL, Depth: 0}) {
		e.teardownLocked()
		return nil, fmt.Errorf("seed URL is not crawlable: %s", project.SourceURL)
	}
	session.PagesDiscovered = 1
	session.QueueSize = 1

	workerCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running = true
	e.done = make(chan struct{})

	e.progress.StartOperation("Crawling "+project.SourceURL, project.Name)

	e.logger.Info().
		Str("session_id", session.ID).
		Str("project", project.Name).
		Str("seed", project.SourceURL).
		Int("depth", session.CrawlDepth).
		Float64("rate_limit", session.RateLimit).
		Int("max_pages", session.MaxPages).
		Msg("Crawl started")

	snapshot := *session
	go e.runWorker(workerCtx)

	return &snapshot, nil
}

// ResumeCrawl restarts a paused session. The frontier is rebuilt from
// persisted pages: discovered pages are re-enqueued, the visited set covers
// every page the session has touched, and the hash set holds the digests of
// processed pages. Counters continue from their persisted values.
func (e *Engine) ResumeCrawl(ctx context.Context, sessionID string, opts CrawlOptions) (*models.CrawlSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil, fmt.Errorf("a crawl is already running (session %s)", e.session.ID)
	}

	session, err := e.store.SessionStorage().GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if err := session.Resume(); err != nil {
		return nil, err
	}

	project, err := e.store.ProjectStorage().GetProject(ctx, session.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	pages, err := e.store.PageStorage().GetPagesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session pages: %w", err)
	}

	e.resetState(session, project, opts)

	queued := 0
	for _, page := range pages {
		if normalized, err := common.NormalizeURL(page.URL); err == nil {
			e.visited[normalized] = true
		}
		switch page.Status {
		case models.PageStatusDiscovered:
			// Not fetched yet: back onto the frontier, not visited.
			if normalized, err := common.NormalizeURL(page.URL); err == nil {
				delete(e.visited, normalized)
			}
			if e.queue.Push(queueItem{URL: page.URL, Depth: page.Depth, ParentURL: page.ParentURL}) {
				queued++
			}
		case models.PageStatusProcessed, models.PageStatusIndexed:
			if page.ContentHash != "" {
				e.hashes[page.ContentHash] = true
			}
		}
	}
	session.QueueSize = queued

	if err := e.store.SessionStorage().StoreSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running = true
	e.done = make(chan struct{})

	e.progress.StartOperation("Resuming "+project.SourceURL, project.Name)

	e.logger.Info().
		Str("session_id", session.ID).
		Str("project", project.Name).
		Int("requeued", queued).
		Msg("Crawl resumed")

	snapshot := *session
	go e.runWorker(workerCtx)

	return &snapshot, nil
}

// StopCrawl requests a stop of the running session. The worker observes the
// flag at the top of its loop and completes the session; the page in flight
// finishes normally.
func (e *Engine) StopCrawl(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || e.session.ID != sessionID {
		return fmt.Errorf("session not running: %s", sessionID)
	}
	e.stopFlag.Store(true)
	e.cancel()
	return nil
}

// PauseCrawl requests a pause of the running session. The worker owns every
// session write, so the transition and its persistence happen in the worker
// on its way out; the paused state is visible in the store once Done()
// closes. The session can be continued later with ResumeCrawl.
func (e *Engine) PauseCrawl(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || e.session.ID != sessionID {
		return fmt.Errorf("session not running: %s", sessionID)
	}
	e.pauseFlag.Store(true)
	e.stopFlag.Store(true)
	e.cancel()
	return nil
}

// CompleteCrawl force-marks a persisted session completed. It applies to
// sessions whose worker is gone, for example after a process restart.
func (e *Engine) CompleteCrawl(ctx context.Context, sessionID string) error {
	session, err := e.store.SessionStorage().GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if err := session.Complete(); err != nil {
		return err
	}
	if err := e.store.SessionStorage().StoreSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Done returns a channel closed when the current worker exits, or nil when
// no crawl was started.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Running reports whether a session is currently being crawled.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// buildSession snapshots the effective configuration into a new session.
func (e *Engine) buildSession(project *models.Project, opts CrawlOptions) (*models.CrawlSession, error) {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = e.config.UserAgent
	}
	rateLimit := opts.RateLimit
	if rateLimit == 0 {
		rateLimit = e.config.RateLimit
	}
	if rateLimit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %v", rateLimit)
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = e.config.MaxPages
	}
	depth := project.CrawlDepth
	if opts.Depth >= 0 {
		depth = opts.Depth
	}
	maxErrors := opts.MaxErrors
	if maxErrors <= 0 {
		maxErrors = e.config.MaxErrors
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.config.RequestTimeout
	}

	now := time.Now().UTC()
	return &models.CrawlSession{
		ID:         common.NewSessionID(),
		ProjectID:  project.ID,
		CrawlDepth: depth,
		UserAgent:  userAgent,
		RateLimit:  rateLimit,
		Timeout:    timeout,
		MaxPages:   maxPages,
		MaxErrors:  maxErrors,
		Status:     models.SessionStatusCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// resetState clears all in-memory crawl state and builds the per-session
// collaborators. Caller holds e.mu.
func (e *Engine) resetState(session *models.CrawlSession, project *models.Project, opts CrawlOptions) {
	e.session = session
	e.project = project
	e.queue = newFrontier()
	e.visited = make(map[string]bool)
	e.hashes = make(map[string]bool)
	e.fetcher = NewFetcher(session.UserAgent, session.Timeout, e.config.MaxBodySize, e.logger)
	e.robots = NewRobotsCache(e.config.RobotsTimeout, e.logger)
	e.limiter = NewRateLimiter(session.RateLimit)
	e.stopFlag.Store(false)
	e.pauseFlag.Store(false)

	e.progress = opts.Progress
	if e.progress == nil {
		e.progress = NoopProgress{}
	}
	e.errors = opts.Errors
	if e.errors == nil {
		e.errors = noopErrorSink{}
	}
}

func (e *Engine) teardownLocked() {
	if e.queue != nil {
		e.queue.Close()
	}
	if e.fetcher != nil {
		e.fetcher.Close()
	}
	e.queue = nil
	e.visited = nil
	e.hashes = nil
	e.running = false
}

// runWorker is the session's single worker goroutine. It drains the frontier
// until stop is requested, the page budget is reached, the error budget is
// exhausted, or the frontier stays empty past its timeout. An escaped panic
// fails the session; every other exit completes it.
func (e *Engine) runWorker(ctx context.Context) {
	session := e.session
	persistCtx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("crawl worker panic: %v", r)
			e.logger.Error().
				Str("session_id", session.ID).
				Str("stack", string(debug.Stack())).
				Msg(msg)
			if err := session.Fail(msg); err == nil {
				if err := e.store.SessionStorage().StoreSession(persistCtx, session); err != nil {
					e.logger.Error().Err(err).Msg("Failed to persist failed session")
				}
			}
			e.finish(interfaces.OperationStatusFailure)
			return
		}

		// The worker is the only goroutine that writes the session, so a
		// requested pause transitions here on the way out; any other exit
		// completes.
		if session.Status == models.SessionStatusRunning {
			if e.pauseFlag.Load() {
				if err := session.Pause(); err != nil {
					e.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to pause session")
				}
			} else if err := session.Complete(); err != nil {
				e.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to complete session")
			}
		}
		if err := e.store.SessionStorage().StoreSession(persistCtx, session); err != nil {
			e.logger.Error().Err(err).Msg("Failed to persist session")
		}

		e.logger.Info().
			Str("session_id", session.ID).
			Str("status", string(session.Status)).
			Int("crawled", session.PagesCrawled).
			Int("failed", session.PagesFailed).
			Int("skipped", session.PagesSkipped).
			Int64("bytes", session.TotalBytes).
			Dur("duration", session.Duration()).
			Msg("Crawl finished")

		e.finish(operationStatus(session))
	}()

	for {
		if e.stopFlag.Load() {
			return
		}
		if session.MaxPages > 0 && session.PagesCrawled >= session.MaxPages {
			e.logger.Info().
				Str("session_id", session.ID).
				Int("max_pages", session.MaxPages).
				Msg("Page budget reached")
			return
		}

		// The frontier can be momentarily empty while pages under the depth
		// bound are still producing links, so the wait is longer until the
		// deepest level is being worked.
		timeout := e.config.QueuePollShort
		if session.CurrentDepth < session.CrawlDepth {
			timeout = e.config.QueuePollLong
		}

		item, ok, err := e.queue.Pop(ctx, timeout)
		if err != nil {
			return
		}
		if !ok {
			if session.CurrentDepth < session.CrawlDepth && session.PagesCrawled > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(e.config.DrainRecheck):
				}
				if e.queue.Len() > 0 {
					continue
				}
			}
			return
		}

		if !e.processItem(ctx, item) {
			return
		}
	}
}

// processItem handles one dequeued URL end to end. It reports false when the
// crawl should stop (error budget exhausted or context cancelled).
func (e *Engine) processItem(ctx context.Context, item queueItem) bool {
	session := e.session

	if e.visited[item.URL] {
		return true
	}
	if item.Depth > session.CrawlDepth {
		return true
	}
	e.visited[item.URL] = true

	session.CurrentDepth = item.Depth
	session.CurrentURL = item.URL
	session.QueueSize = e.queue.Len()
	e.emitProgress()

	if e.config.FollowRobots && !e.robots.IsAllowed(ctx, item.URL, session.UserAgent) {
		e.logger.Debug().
			Str("url", item.URL).
			Msg("URL disallowed by robots.txt")
		return true
	}

	if err := e.limiter.Acquire(ctx, item.URL); err != nil {
		return false
	}

	page := &models.Page{
		ID:           common.NewPageID(),
		SessionID:    session.ID,
		ProjectID:    session.ProjectID,
		URL:          item.URL,
		ParentURL:    item.ParentURL,
		Depth:        item.Depth,
		Status:       models.PageStatusDiscovered,
		MaxRetries:   models.DefaultMaxRetries,
		DiscoveredAt: time.Now().UTC(),
	}
	if err := e.store.PageStorage().StorePage(ctx, page); err != nil {
		e.logger.Warn().Err(err).Str("url", item.URL).Msg("Failed to persist page")
	}
	if err := page.MarkCrawling(); err != nil {
		e.logger.Warn().Err(err).Str("url", item.URL).Msg("Invalid page transition")
		return true
	}

	result := e.fetcher.Fetch(ctx, item.URL)

	if !result.OK() {
		return e.recordFailure(ctx, page, result)
	}
	e.recordSuccess(ctx, page, result)
	return true
}

// recordFailure marks the page failed, feeds the error sink and spends the
// error budget. When the budget is gone the crawl stops but still counts as
// completed; the error report stays in place for diagnosis.
func (e *Engine) recordFailure(ctx context.Context, page *models.Page, result *FetchResult) bool {
	session := e.session

	if err := page.MarkFailed(result.Message); err != nil {
		e.logger.Warn().Err(err).Str("url", page.URL).Msg("Invalid page transition")
	}
	page.HTTPStatus = result.StatusCode
	page.ResponseTimeMs = result.ResponseTime.Milliseconds()
	if err := e.store.PageStorage().StorePage(ctx, page); err != nil {
		e.logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to persist page")
	}

	e.errors.AddError(page.URL, result.ErrKind, result.Message, result.StatusCode, page.RetryCount, false)

	session.PagesFailed++
	session.ErrorCount++
	e.persistSession(ctx)

	e.logger.Warn().
		Str("url", page.URL).
		Str("kind", string(result.ErrKind)).
		Int("error_count", session.ErrorCount).
		Msg(result.Message)

	if session.ErrorBudgetExhausted() {
		e.logger.Warn().
			Str("session_id", session.ID).
			Int("max_errors", session.MaxErrors).
			Msg("Error budget exhausted, stopping crawl")
		return false
	}
	return true
}

// recordSuccess deduplicates by content hash, stores the processed page,
// categorizes its links against the seed host and enqueues internal links
// still inside the depth bound.
func (e *Engine) recordSuccess(ctx context.Context, page *models.Page, result *FetchResult) {
	session := e.session

	hash := models.ComputeContentHash(result.Text)
	if e.hashes[hash] {
		if err := page.MarkSkipped("Duplicate content"); err != nil {
			e.logger.Warn().Err(err).Str("url", page.URL).Msg("Invalid page transition")
		}
		page.HTTPStatus = result.StatusCode
		page.ContentHash = hash
		if err := e.store.PageStorage().StorePage(ctx, page); err != nil {
			e.logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to persist page")
		}
		session.PagesSkipped++
		e.persistSession(ctx)
		return
	}
	e.hashes[hash] = true

	internal, external := e.categorizeLinks(result.Links)

	if err := page.MarkProcessed(models.PageContent{
		FinalURL:       result.FinalURL,
		HTTPStatus:     result.StatusCode,
		ResponseTimeMs: result.ResponseTime.Milliseconds(),
		ContentType:    result.MIMEType,
		Charset:        result.Charset,
		Title:          result.Title,
		HTML:           result.HTML,
		Text:           result.Text,
		Markdown:       result.Markdown,
		SizeBytes:      result.SizeBytes,
		Links:          result.Links,
	}); err != nil {
		e.logger.Warn().Err(err).Str("url", page.URL).Msg("Invalid page transition")
		return
	}
	page.InternalLinks = internal
	page.ExternalLinks = external

	if page.Depth+1 <= session.CrawlDepth {
		for _, link := range internal {
			if e.queue.Push(queueItem{URL: link, Depth: page.Depth + 1, ParentURL: page.URL}) {
				session.PagesDiscovered++
			}
		}
	}

	if err := e.store.PageStorage().StorePage(ctx, page); err != nil {
		e.logger.Warn().Err(err).Str("url", page.URL).Msg("Failed to persist page")
	}

	session.PagesCrawled++
	session.TotalBytes += result.SizeBytes
	session.QueueSize = e.queue.Len()
	e.persistSession(ctx)
	e.emitProgress()
}

// categorizeLinks splits outbound links by whether they share the project's
// seed host. Links found on a page that redirected off-host are external by
// this rule, which keeps dedup scoped to the project's own site.
func (e *Engine) categorizeLinks(links []string) (internal, external []string) {
	for _, link := range links {
		if common.SameHost(link, e.project.SourceURL) {
			internal = append(internal, link)
		} else {
			external = append(external, link)
		}
	}
	return internal, external
}

func (e *Engine) persistSession(ctx context.Context) {
	e.session.UpdatedAt = time.Now().UTC()
	if err := e.store.SessionStorage().StoreSession(ctx, e.session); err != nil {
		e.logger.Warn().Err(err).Str("session_id", e.session.ID).Msg("Failed to persist session counters")
	}
}

func (e *Engine) emitProgress() {
	session := e.session
	e.progress.UpdateMetrics(map[string]interface{}{
		"depth":         session.CurrentDepth,
		"pages_crawled": session.PagesCrawled,
		"pages_failed":  session.PagesFailed,
		"queue_size":    session.QueueSize,
		"current_url":   session.CurrentURL,
	})
	e.progress.SetCurrentOperation(session.CurrentURL)
}

// finish tears down per-session state and closes the operation on the
// progress sink.
func (e *Engine) finish(status interfaces.OperationStatus) {
	session := e.session

	e.progress.CompleteOperation(e.project.Name, "crawl", session.Duration(), map[string]interface{}{
		"pages_crawled": session.PagesCrawled,
		"pages_failed":  session.PagesFailed,
		"pages_skipped": session.PagesSkipped,
		"total_bytes":   session.TotalBytes,
	}, status)

	e.mu.Lock()
	e.teardownLocked()
	done := e.done
	e.mu.Unlock()

	close(done)
}

// operationStatus maps a finished session onto the progress sink's outcome
// labels.
func operationStatus(session *models.CrawlSession) interfaces.OperationStatus {
	switch {
	case session.Status == models.SessionStatusFailed:
		return interfaces.OperationStatusFailure
	case session.PagesFailed > 0:
		return interfaces.OperationStatusPartialSuccess
	default:
		return interfaces.OperationStatusSuccess
	}
}

// NoopProgress satisfies ProgressSink while discarding every event.
type NoopProgress struct{}

func (NoopProgress) StartOperation(string, string)                    {}
func (NoopProgress) UpdateMetrics(map[string]interface{})             {}
func (NoopProgress) SetCurrentOperation(string)                       {}
func (NoopProgress) ShowEmbeddingStatus(string, string, interfaces.EmbeddingState) {}
func (NoopProgress) ShowEmbeddingError(string)                        {}
func (NoopProgress) CompleteOperation(string, string, time.Duration, map[string]interface{}, interfaces.OperationStatus) {
}

// noopErrorSink discards errors; callers that want a report pass a real
// sink.
type noopErrorSink struct{}

func (noopErrorSink) AddError(string, models.ErrorKind, string, int, int, bool) {}
func (noopErrorSink) HasErrors() bool                                           { return false }
func (noopErrorSink) SaveReport() (string, string, error)                       { return "", "", nil }
