package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
	"github.com/ternarybob/docbro/internal/services/crawler"
	"github.com/ternarybob/docbro/internal/services/reports"
)

// ProjectIndexer embeds a project's crawled pages after a successful crawl.
// The embedding service implements it; a nil indexer skips indexing.
type ProjectIndexer interface {
	IndexProject(ctx context.Context, project *models.Project, progress interfaces.ProgressSink) (int, error)
}

// Options carries per-batch crawl overrides; zero values defer to the
// project and config defaults.
type Options struct {
	MaxPages        int
	RateLimit       float64
	Depth           int // -1 means use each project's configured depth
	ContinueOnError bool
	Progress        interfaces.ProgressSink
}

// Orchestrator runs crawl sessions over several projects sequentially. Each
// project gets a fresh engine and error reporter; a failing project never
// takes the batch down when continue_on_error is set.
type Orchestrator struct {
	store   interfaces.StorageManager
	config  *common.Config
	logger  arbor.ILogger
	indexer ProjectIndexer

	cancelled atomic.Bool
}

func NewOrchestrator(store interfaces.StorageManager, config *common.Config, logger arbor.ILogger, indexer ProjectIndexer) *Orchestrator {
	return &Orchestrator{
		store:   store,
		config:  config,
		logger:  logger,
		indexer: indexer,
	}
}

// Cancel requests a stop before the next project starts. The project
// currently crawling is left to finish.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
}

// CrawlAll crawls the projects in order and returns the batch summary. Only
// setup failures (an unbuildable batch) return an error; per-project
// failures are recorded in the summary.
func (o *Orchestrator) CrawlAll(ctx context.Context, projects []*models.Project, opts Options) (*models.BatchSummary, error) {
	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Name
	}
	batch, err := models.NewBatchOperation(common.NewBatchID(), names, opts.ContinueOnError)
	if err != nil {
		return nil, err
	}

	progress := opts.Progress
	if progress == nil {
		progress = crawler.NoopProgress{}
	}

	batch.Begin()
	o.logger.Info().
		Str("batch_id", batch.ID).
		Int("projects", len(projects)).
		Bool("continue_on_error", opts.ContinueOnError).
		Msg("Batch crawl started")

	for i, project := range projects {
		if o.cancelled.Load() || ctx.Err() != nil {
			o.logger.Warn().Str("batch_id", batch.ID).Int("remaining", len(projects)-i).Msg("Batch cancelled")
			break
		}

		progress.SetCurrentOperation(fmt.Sprintf("Project %d/%d: %s", i+1, len(projects), project.Name))

		pages, embeddings, err := o.crawlProject(ctx, project, opts, progress)
		if err != nil {
			o.logger.Warn().Err(err).Str("project", project.Name).Msg("Project crawl failed")
			if markErr := batch.MarkFailed(project.Name, err.Error()); markErr != nil {
				return nil, markErr
			}
			if !opts.ContinueOnError {
				break
			}
			continue
		}

		if markErr := batch.MarkCompleted(project.Name, pages, embeddings); markErr != nil {
			return nil, markErr
		}
		if eta, ok := batch.EstimatedCompletion(); ok {
			o.logger.Info().
				Str("batch_id", batch.ID).
				Int("done", batch.CurrentIndex).
				Int("total", len(projects)).
				Str("eta", eta.Format(time.RFC3339)).
				Msg("Batch progress")
		}
	}

	batch.Finish()
	summary := batch.Summarize()
	o.logger.Info().
		Str("batch_id", batch.ID).
		Str("status", string(batch.Status)).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("pages", summary.TotalPages).
		Dur("duration", summary.Duration).
		Msg("Batch crawl finished")
	return summary, nil
}

// crawlProject runs one project end to end: status to crawling, crawl to a
// terminal session, optional indexing, status to ready or error, report
// saved when anything failed. It returns the pages crawled and embeddings
// stored.
func (o *Orchestrator) crawlProject(ctx context.Context, project *models.Project, opts Options, progress interfaces.ProgressSink) (int, int, error) {
	reporter := reports.NewReporter(project.ID, project.Name, o.config.DataDir, o.config.Crawler.MaxErrors, o.logger)

	project.MarkCrawling()
	if err := o.store.ProjectStorage().StoreProject(ctx, project); err != nil {
		return 0, 0, fmt.Errorf("failed to mark project crawling: %w", err)
	}

	session, err := o.runCrawl(ctx, project, opts, progress, reporter)
	if err != nil {
		reporter.FinishError(err)
		o.failProject(ctx, project, reporter, err.Error())
		return 0, 0, err
	}

	reporter.Finish(session)

	if session.Status != models.SessionStatusCompleted {
		msg := session.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("session ended %s", session.Status)
		}
		o.failProject(ctx, project, reporter, msg)
		return 0, 0, fmt.Errorf("%s", msg)
	}

	// A session spared by the error budget still ends completed, so the
	// completed status alone does not mean the crawl produced anything. The
	// report derives FAILED when every fetch failed; that is a project
	// failure, not a success with zero pages.
	if report := reporter.Report(); report.Status == models.ReportStatusFailed {
		msg := fmt.Sprintf("all %d page fetches failed", session.PagesFailed)
		o.failProject(ctx, project, reporter, msg)
		return 0, 0, fmt.Errorf("%s", msg)
	}

	embeddings := 0
	if o.indexer != nil {
		embeddings, err = o.indexer.IndexProject(ctx, project, progress)
		if err != nil {
			// Indexing failures degrade the project, not the batch: the
			// crawled pages are still available for a later reindex.
			o.logger.Warn().Err(err).Str("project", project.Name).Msg("Indexing failed")
			progress.ShowEmbeddingError(err.Error())
			embeddings = 0
		}
	}

	project.ApplyStats(models.ProjectStats{
		LastCrawlAt:     time.Now().UTC(),
		TotalPages:      session.PagesCrawled + session.PagesFailed + session.PagesSkipped,
		TotalSize:       session.TotalBytes,
		SuccessfulPages: session.PagesCrawled,
		FailedPages:     session.PagesFailed,
		TotalEmbeddings: embeddings,
	})
	project.MarkReady()
	if err := o.store.ProjectStorage().StoreProject(ctx, project); err != nil {
		return 0, 0, fmt.Errorf("failed to mark project ready: %w", err)
	}

	o.saveReportIfNeeded(reporter, project.Name)
	return session.PagesCrawled, embeddings, nil
}

// runCrawl starts a crawl on a fresh engine and polls the persisted session
// until it is terminal. Context cancellation stops the engine and waits for
// the worker to exit.
func (o *Orchestrator) runCrawl(ctx context.Context, project *models.Project, opts Options, progress interfaces.ProgressSink, reporter *reports.Reporter) (*models.CrawlSession, error) {
	engine := crawler.NewEngine(o.store, o.config.Crawler, o.logger)
	session, err := engine.StartCrawl(ctx, project.ID, crawler.CrawlOptions{
		MaxPages:  opts.MaxPages,
		RateLimit: opts.RateLimit,
		Depth:     opts.Depth,
		Progress:  progress,
		Errors:    reporter,
	})
	if err != nil {
		return nil, err
	}
	reporter.Begin(session.ID)

	for {
		workerDone := false
		select {
		case <-ctx.Done():
			if err := engine.StopCrawl(session.ID); err == nil {
				<-engine.Done()
			}
			return nil, ctx.Err()
		case <-engine.Done():
			workerDone = true
		case <-time.After(o.config.Crawler.PollInterval):
		}

		current, err := o.store.SessionStorage().GetSession(context.Background(), session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll session: %w", err)
		}
		if current.IsTerminal() {
			return current, nil
		}
		// A worker that exited without a terminal status was paused out of
		// band; the batch treats that as the session's final state.
		if workerDone {
			return current, nil
		}
	}
}

func (o *Orchestrator) failProject(ctx context.Context, project *models.Project, reporter *reports.Reporter, msg string) {
	project.MarkError(msg)
	if err := o.store.ProjectStorage().StoreProject(ctx, project); err != nil {
		o.logger.Error().Err(err).Str("project", project.Name).Msg("Failed to persist project error status")
	}
	o.saveReportIfNeeded(reporter, project.Name)
}

func (o *Orchestrator) saveReportIfNeeded(reporter *reports.Reporter, projectName string) {
	if !reporter.HasErrors() {
		return
	}
	if _, _, err := reporter.SaveReport(); err != nil {
		o.logger.Error().Err(err).Str("project", projectName).Msg("Failed to save crawl report")
	}
}
