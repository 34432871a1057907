package models

import "fmt"

// SearchQuery represents a keyword search request with optional filters.
type SearchQuery struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Cluster *int   `json:"cluster,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error if the query is empty or the cluster filter is negative.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Cluster != nil && *q.Cluster < 0 {
		return fmt.Errorf("cluster must be non-negative, got %d", *q.Cluster)
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// AnalyzeRequest asks for a new run. Zero fields fall back to the configuration.
type AnalyzeRequest struct {
	Directories []string `json:"directories,omitempty"`
	K           int      `json:"k,omitempty"`
	NumTopics   int      `json:"num_topics,omitempty"`
}

// Validate rejects negative overrides.
func (r *AnalyzeRequest) Validate() error {
	if r.K < 0 {
		return fmt.Errorf("k must be positive, got %d", r.K)
	}
	if r.NumTopics < 0 {
		return fmt.Errorf("num_topics must be positive, got %d", r.NumTopics)
	}
	return nil
}
