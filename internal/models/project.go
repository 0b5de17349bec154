package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ProjectStatus represents the lifecycle state of a documentation project
type ProjectStatus string

const (
	ProjectStatusCreated  ProjectStatus = "created"
	ProjectStatusCrawling ProjectStatus = "crawling"
	ProjectStatusReady    ProjectStatus = "ready"
	ProjectStatusError    ProjectStatus = "error"
)

// Project represents a documentation target: one site crawled into one
// searchable collection. Projects are referenced by any number of crawl
// sessions; statistics are refreshed after each crawl.
type Project struct {
	ID             string        `json:"id"` // proj_{uuid}
	Name           string        `json:"name"`
	SourceURL      string        `json:"source_url"`
	CrawlDepth     int           `json:"crawl_depth"`
	EmbeddingModel string        `json:"embedding_model"`
	Status         ProjectStatus `json:"status"`
	StatusMessage  string        `json:"status_message,omitempty"`

	// Statistics refreshed after each crawl
	LastCrawlAt     *time.Time `json:"last_crawl_at,omitempty"`
	TotalPages      int        `json:"total_pages"`
	TotalSize       int64      `json:"total_size"`
	SuccessfulPages int        `json:"successful_pages"`
	FailedPages     int        `json:"failed_pages"`
	TotalEmbeddings int        `json:"total_embeddings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the project's required fields and URL shape.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	if p.SourceURL == "" {
		return fmt.Errorf("project source URL is required")
	}
	parsed, err := url.Parse(p.SourceURL)
	if err != nil {
		return fmt.Errorf("invalid source URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("source URL must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("source URL missing host")
	}
	if p.CrawlDepth < 0 {
		return fmt.Errorf("crawl depth must be >= 0, got %d", p.CrawlDepth)
	}
	return nil
}

// SeedHost returns the host of the project's seed URL, the boundary for
// internal vs external link categorization.
func (p *Project) SeedHost() string {
	parsed, err := url.Parse(p.SourceURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// MarkCrawling transitions the project into the crawling state.
func (p *Project) MarkCrawling() {
	p.Status = ProjectStatusCrawling
	p.StatusMessage = ""
	p.UpdatedAt = time.Now().UTC()
}

// MarkReady transitions the project into the ready state after a successful
// crawl.
func (p *Project) MarkReady() {
	p.Status = ProjectStatusReady
	p.StatusMessage = ""
	p.UpdatedAt = time.Now().UTC()
}

// MarkError records a crawl failure on the project.
func (p *Project) MarkError(msg string) {
	p.Status = ProjectStatusError
	p.StatusMessage = msg
	p.UpdatedAt = time.Now().UTC()
}

// ProjectStats carries the post-crawl totals applied to a project in one
// update.
type ProjectStats struct {
	LastCrawlAt     time.Time `json:"last_crawl_at"`
	TotalPages      int       `json:"total_pages"`
	TotalSize       int64     `json:"total_size"`
	SuccessfulPages int       `json:"successful_pages"`
	FailedPages     int       `json:"failed_pages"`
	TotalEmbeddings int       `json:"total_embeddings"`
}

// ApplyStats overwrites the project's statistics with fresh crawl totals.
func (p *Project) ApplyStats(stats ProjectStats) {
	last := stats.LastCrawlAt
	p.LastCrawlAt = &last
	p.TotalPages = stats.TotalPages
	p.TotalSize = stats.TotalSize
	p.SuccessfulPages = stats.SuccessfulPages
	p.FailedPages = stats.FailedPages
	p.TotalEmbeddings = stats.TotalEmbeddings
	p.UpdatedAt = time.Now().UTC()
}

// ToJSON serializes the project for API responses and the CLI --json flag.
func (p *Project) ToJSON() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
