package models

import "time"

// Run summarizes one pipeline execution.
type Run struct {
	ID           string    `json:"id" db:"id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	NumDocuments int       `json:"num_documents" db:"num_documents"`
	K            int       `json:"k" db:"k"`
	NumTopics    int       `json:"num_topics" db:"num_topics"`
	EmbeddingDim int       `json:"embedding_dim" db:"embedding_dim"`
	Inertia      float64   `json:"inertia" db:"inertia"`
	// Config is the YAML of the configuration the run used.
	Config string `json:"config,omitempty" db:"config"`
}

// TopicTerm is a term and its weight within a topic.
type TopicTerm struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Topic is one LDA topic with its highest weighted terms.
type Topic struct {
	Index int         `json:"index"`
	Terms []TopicTerm `json:"terms"`
}

// SearchHit is a single keyword search hit over an analysed run.
type SearchHit struct {
	DocumentID string              `json:"document_id"`
	RunID      string              `json:"run_id"`
	Path       string              `json:"path"`
	Category   string              `json:"category"`
	Cluster    int                 `json:"cluster"`
	Topic      int                 `json:"topic"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Hits      []*SearchHit `json:"hits"`
	Total     int          `json:"total"`
	QueryTime int64        `json:"query_time_ms"`
	Query     string       `json:"query"`
}
