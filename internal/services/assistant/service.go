package assistant

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/interfaces"
	"github.com/ternarybob/docbro/internal/models"
)

const defaultModel = "claude-sonnet-4-5"

const systemPrompt = `You are a documentation assistant. Answer the question using only the
provided documentation excerpts. Cite the excerpts you used by their [n]
number. If the excerpts do not contain the answer, say so plainly instead
of guessing.`

// Service answers questions about a crawled project by retrieving the most
// relevant indexed chunks and asking Claude to synthesize an answer from
// them.
type Service struct {
	store    interfaces.StorageManager
	searcher interfaces.VectorIndexer
	config   *common.AssistantConfig
	logger   arbor.ILogger
	client   anthropic.Client
	enabled  bool
}

// NewService builds the assistant. A missing API key is not a construction
// error; Ask reports it when called so crawl-only usage never needs a key.
func NewService(store interfaces.StorageManager, searcher interfaces.VectorIndexer, config *common.AssistantConfig, logger arbor.ILogger) *Service {
	service := &Service{
		store:    store,
		searcher: searcher,
		config:   config,
		logger:   logger,
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		apiKey = config.APIKey
	}
	if apiKey == "" {
		return service
	}

	service.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	service.enabled = true
	return service
}

// Ask retrieves the top chunks for the question from the project's index and
// returns Claude's answer plus the distinct source URLs, best match first.
func (s *Service) Ask(ctx context.Context, projectName, question string) (string, []string, error) {
	if !s.enabled {
		return "", nil, fmt.Errorf("ask requires an Anthropic API key (set ANTHROPIC_API_KEY)")
	}
	if strings.TrimSpace(question) == "" {
		return "", nil, fmt.Errorf("question is required")
	}

	project, err := s.store.ProjectStorage().GetProjectByName(ctx, projectName)
	if err != nil {
		return "", nil, fmt.Errorf("project not found: %s", projectName)
	}

	topK := s.config.TopK
	if topK <= 0 {
		topK = 5
	}
	results, err := s.searcher.SearchDocuments(ctx, project.ID, question, topK)
	if err != nil {
		return "", nil, fmt.Errorf("retrieval failed: %w", err)
	}
	if len(results) == 0 {
		return "", nil, fmt.Errorf("no indexed content for project %q; crawl it with embedding enabled first", projectName)
	}

	prompt, sources := buildPrompt(question, results)

	model := s.config.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := s.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var answer strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			answer.WriteString(text.Text)
		}
	}
	if answer.Len() == 0 {
		return "", nil, fmt.Errorf("no answer generated")
	}

	s.logger.Debug().
		Str("project", projectName).
		Str("model", model).
		Int("chunks", len(results)).
		Msg("Question answered")
	return answer.String(), sources, nil
}

// buildPrompt assembles the numbered excerpt block plus the question, and
// returns the distinct source URLs in retrieval order.
func buildPrompt(question string, results []*models.SearchResult) (string, []string) {
	var b strings.Builder
	b.WriteString("Documentation excerpts:\n\n")

	var sources []string
	seen := make(map[string]bool)
	for i, result := range results {
		doc := result.Document
		fmt.Fprintf(&b, "[%d] %s", i+1, doc.URL)
		if doc.Heading != "" {
			fmt.Fprintf(&b, " (%s)", doc.Heading)
		}
		b.WriteString("\n")
		b.WriteString(doc.Content)
		b.WriteString("\n\n")

		if doc.URL != "" && !seen[doc.URL] {
			seen[doc.URL] = true
			sources = append(sources, doc.URL)
		}
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String(), sources
}
