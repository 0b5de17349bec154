package handlers

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/interfaces"
)

// LogProgress renders crawl progress as arbor log lines. It is the default
// sink for CLI crawls; the websocket sink replaces it under serve.
type LogProgress struct {
	logger arbor.ILogger
}

func NewLogProgress(logger arbor.ILogger) *LogProgress {
	return &LogProgress{logger: logger}
}

func (p *LogProgress) StartOperation(title, projectName string) {
	p.logger.Info().Str("project", projectName).Msg(title)
}

func (p *LogProgress) UpdateMetrics(metrics map[string]interface{}) {
	event := p.logger.Debug()
	for _, key := range sortedKeys(metrics) {
		event = event.Str(key, fmt.Sprintf("%v", metrics[key]))
	}
	event.Msg("Crawl progress")
}

func (p *LogProgress) SetCurrentOperation(text string) {
	p.logger.Info().Msg(text)
}

func (p *LogProgress) ShowEmbeddingStatus(model, projectName string, state interfaces.EmbeddingState) {
	p.logger.Info().
		Str("project", projectName).
		Str("model", model).
		Str("state", string(state)).
		Msg("Embedding")
}

func (p *LogProgress) ShowEmbeddingError(msg string) {
	p.logger.Warn().Str("error", msg).Msg("Embedding problem")
}

func (p *LogProgress) CompleteOperation(projectName, kind string, duration time.Duration, metrics map[string]interface{}, status interfaces.OperationStatus) {
	event := p.logger.Info().
		Str("project", projectName).
		Str("kind", kind).
		Str("status", strings.ToUpper(string(status))).
		Dur("duration", duration)
	for _, key := range sortedKeys(metrics) {
		event = event.Str(key, fmt.Sprintf("%v", metrics[key]))
	}
	event.Msg("Operation complete")
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
