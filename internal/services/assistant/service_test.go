package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/common"
	"github.com/ternarybob/docbro/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	results := []*models.SearchResult{
		{Document: &models.Document{URL: "https://docs/a", Heading: "Install", Content: "Run the installer."}, Score: 0.9},
		{Document: &models.Document{URL: "https://docs/b", Content: "Configure the data dir."}, Score: 0.8},
		{Document: &models.Document{URL: "https://docs/a", Heading: "Install", Content: "Second chunk from the same page."}, Score: 0.7},
	}

	prompt, sources := buildPrompt("How do I install?", results)

	for _, want := range []string{
		"[1] https://docs/a (Install)",
		"Run the installer.",
		"[2] https://docs/b",
		"[3] https://docs/a",
		"Question: How do I install?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// Sources are deduplicated in retrieval order.
	if len(sources) != 2 || sources[0] != "https://docs/a" || sources[1] != "https://docs/b" {
		t.Errorf("sources: %v", sources)
	}
}

func TestAsk_RequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	service := NewService(nil, nil, &common.AssistantConfig{}, arbor.NewLogger())

	_, _, err := service.Ask(context.Background(), "docs", "anything")
	if err == nil || !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Errorf("err: %v", err)
	}
}
