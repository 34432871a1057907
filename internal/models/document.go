// Package models defines core data structures for documents, runs, topics, and search results.
package models

import "time"

// Document is one corpus file after text extraction and tokenization.
// Documents are created once at load time and never mutated.
type Document struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Category string    `json:"category"`
	Content  string    `json:"-"`
	Tokens   []string  `json:"-"`
	ModTime  time.Time `json:"mod_time"`
}

// DocumentAssignment is the persisted outcome of a run for one document.
type DocumentAssignment struct {
	RunID         string  `json:"run_id" db:"run_id"`
	Index         int     `json:"index" db:"doc_index"`
	ID            string  `json:"id" db:"id"`
	Path          string  `json:"path" db:"path"`
	Category      string  `json:"category" db:"category"`
	NumTokens     int     `json:"num_tokens" db:"tokens"`
	Cluster       int     `json:"cluster" db:"cluster"`
	DominantTopic int     `json:"dominant_topic" db:"dominant_topic"`
	X             float64 `json:"x" db:"x"`
	Y             float64 `json:"y" db:"y"`
}

// ScatterPoint is one point of the 2D cluster scatter: the first two
// similarity-matrix coordinates of a document, colored by cluster label.
type ScatterPoint struct {
	Index    int     `json:"index"`
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Label    int     `json:"label"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}
