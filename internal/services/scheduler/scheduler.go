package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
	"github.com/ternarybob/docbro/internal/services/batch"
)

const defaultSchedule = "0 3 * * *"

// Service recrawls every project on a cron schedule while the server runs.
// Each tick runs one continue-on-error batch over all stored projects.
type Service struct {
	store   interfaces.StorageManager
	config  *common.Config
	logger  arbor.ILogger
	indexer batch.ProjectIndexer

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	active  bool // a batch tick is in flight
}

func NewService(store interfaces.StorageManager, config *common.Config, logger arbor.ILogger, indexer batch.ProjectIndexer) *Service {
	return &Service{
		store:   store,
		config:  config,
		logger:  logger,
		indexer: indexer,
		cron:    cron.New(),
	}
}

// Start registers the recrawl job and starts the cron loop. An empty
// schedule falls back to daily at 03:00.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	schedule := s.config.Scheduler.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.runBatchUpdate); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", schedule).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop. A batch already in flight finishes on its own.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning reports whether the cron loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runBatchUpdate is the cron tick: recrawl every project, continuing past
// per-project failures. Overlapping ticks are dropped rather than queued.
func (s *Service) runBatchUpdate() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		s.logger.Warn().Msg("Scheduled recrawl skipped: previous run still in progress")
		return
	}
	s.active = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	projects, err := s.store.ProjectStorage().ListProjects(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled recrawl failed to list projects")
		return
	}
	if len(projects) == 0 {
		s.logger.Debug().Msg("Scheduled recrawl: no projects")
		return
	}

	// Projects mid-crawl are left alone; everything else is fair game.
	eligible := make([]*models.Project, 0, len(projects))
	for _, p := range projects {
		if p.Status == models.ProjectStatusCrawling {
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) == 0 {
		return
	}

	s.logger.Info().Int("projects", len(eligible)).Msg("Scheduled recrawl started")
	orchestrator := batch.NewOrchestrator(s.store, s.config, s.logger, s.indexer)
	summary, err := orchestrator.CrawlAll(ctx, eligible, batch.Options{
		Depth:           -1,
		ContinueOnError: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled recrawl failed")
		return
	}
	s.logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("pages", summary.TotalPages).
		Dur("duration", summary.Duration).
		Msg("Scheduled recrawl finished")
}
