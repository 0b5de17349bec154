package models

import (
	"encoding/json"
	"time"
)

// Document is one embeddable chunk of a processed page. Pages are split on
// markdown headings before embedding, so a page usually yields several
// documents that share its URL and title.
type Document struct {
	ID        string `json:"id"` // doc_{uuid}
	ProjectID string `json:"project_id"`
	PageID    string `json:"page_id"`

	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`   // Title of the source page
	Heading    string `json:"heading,omitempty"` // Nearest section heading
	Content    string `json:"content"`           // Chunk text, markdown
	ChunkIndex int    `json:"chunk_index"`       // Position within the page

	Vector         []float32 `json:"vector,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasVector reports whether the document was embedded.
func (d *Document) HasVector() bool {
	return len(d.Vector) > 0
}

// DocumentStats summarizes a project's document index.
type DocumentStats struct {
	TotalDocuments     int       `json:"total_documents"`
	EmbeddedDocuments  int       `json:"embedded_documents"`
	AverageContentSize int       `json:"average_content_size"`
	LastUpdated        time.Time `json:"last_updated"`
}

// SearchResult pairs a document with its similarity score for retrieval.
type SearchResult struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
}

// ToJSON serializes the document.
func (d *Document) ToJSON() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DocumentFromJSON deserializes a document from its JSON form.
func DocumentFromJSON(data string) (*Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
