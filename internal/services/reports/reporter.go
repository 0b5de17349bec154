package reports

import (
	"runtime/debug"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/models"
)

// Reporter collects the errors of one project crawl into a CrawlReport and
// writes the report file pair when asked. It implements interfaces.ErrorSink
// so the crawl engine can record failures without knowing about report files.
type Reporter struct {
	mu        sync.Mutex
	logger    arbor.ILogger
	report    *models.CrawlReport
	sessionID string
	maxErrors int
	dataDir   string
}

// NewReporter creates a reporter for a project. maxErrors caps the stored
// entries; failures past the cap only bump the overflow counter. dataDir is
// the root under which the per-project reports directory lives.
func NewReporter(projectID, projectName, dataDir string, maxErrors int, logger arbor.ILogger) *Reporter {
	if maxErrors <= 0 {
		maxErrors = common.DefaultMaxErrors
	}
	return &Reporter{
		logger:    logger,
		report:    models.NewCrawlReport(projectID, projectName),
		maxErrors: maxErrors,
		dataDir:   dataDir,
	}
}

// Begin ties the reporter to a session and marks the report in progress.
func (r *Reporter) Begin(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = sessionID
	r.report.Begin(sessionID)
}

// AddError records one failure. Entries past the cap are counted but not
// stored so a pathological crawl cannot grow the report without bound.
func (r *Reporter) AddError(url string, kind models.ErrorKind, message string, httpStatus, retryCount int, includeTrace bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.report.Errors) >= r.maxErrors {
		r.report.ErrorsOverflow++
		return
	}

	entry, err := models.NewErrorEntry(common.NewErrorID(), r.sessionID, url, kind, message, httpStatus)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", url).Msg("Dropped malformed error entry")
		return
	}
	entry.RetryCount = retryCount
	if includeTrace {
		entry.StackTrace = string(debug.Stack())
	}
	r.report.Errors = append(r.report.Errors, entry)
}

// HasErrors reports whether any failure was recorded, including overflowed
// ones.
func (r *Reporter) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.report.Errors) > 0 || r.report.ErrorsOverflow > 0
}

// Finish copies the finished session's counters into the report and derives
// its final status.
func (r *Reporter) Finish(session *models.CrawlSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Finish(session)
	r.report.SummarizeErrors()
}

// FinishError marks the report failed when no session could run at all.
func (r *Reporter) FinishError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.FinishError(err)
	r.report.SummarizeErrors()
}

// Report returns a snapshot of the current report.
func (r *Reporter) Report() *models.CrawlReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := *r.report
	return &snapshot
}

// SaveReport writes the timestamped JSON and text reports plus the
// report_latest copies into the project's reports directory and returns the
// timestamped paths.
func (r *Reporter) SaveReport() (string, string, error) {
	r.mu.Lock()
	report := r.report
	projectName := r.report.ProjectName
	r.mu.Unlock()

	dir, err := common.ReportsDir(r.dataDir, projectName)
	if err != nil {
		return "", "", err
	}

	jsonPath, textPath, err := WriteReport(dir, report)
	if err != nil {
		return "", "", err
	}

	r.logger.Info().
		Str("project", projectName).
		Str("report", jsonPath).
		Int("errors", len(report.Errors)).
		Msg("Crawl report saved")
	return jsonPath, textPath, nil
}
