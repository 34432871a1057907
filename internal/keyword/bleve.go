package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/doctopics/internal/models"
)

const (
	fieldRunID    = "run_id"
	fieldDocID    = "doc_id"
	fieldPath     = "path"
	fieldCategory = "category"
	fieldContent  = "content"
	fieldCluster  = "cluster"
	fieldTopic    = "topic"

	batchSize = 500
)

// indexedDocument is the bleve representation of one document in one run.
type indexedDocument struct {
	RunID    string  `json:"run_id"`
	DocID    string  `json:"doc_id"`
	Path     string  `json:"path"`
	Category string  `json:"category"`
	Content  string  `json:"content"`
	Cluster  float64 `json:"cluster"`
	Topic    float64 `json:"topic"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to rebuild it.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Standard analyzer lowercases and tokenizes without stemming so query terms
	// match the words the topic model reports.
	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(fieldContent, content)

	for _, name := range []string{fieldRunID, fieldDocID, fieldPath, fieldCategory} {
		docMapping.AddFieldMappingsAt(name, bleve.NewKeywordFieldMapping())
	}
	for _, name := range []string{fieldCluster, fieldTopic} {
		docMapping.AddFieldMappingsAt(name, bleve.NewNumericFieldMapping())
	}

	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// IndexRun indexes the documents of one run. assignments[i] describes docs[i].
func (b *BleveIndex) IndexRun(ctx context.Context, docs []*models.Document, assignments []*models.DocumentAssignment) error {
	if len(docs) != len(assignments) {
		return fmt.Errorf("got %d documents and %d assignments", len(docs), len(assignments))
	}
	batch := b.index.NewBatch()
	for i, a := range assignments {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := indexedDocument{
			RunID:    a.RunID,
			DocID:    a.ID,
			Path:     a.Path,
			Category: a.Category,
			Content:  docs[i].Content,
			Cluster:  float64(a.Cluster),
			Topic:    float64(a.DominantTopic),
		}
		if err := batch.Index(hitID(a.RunID, a.ID), doc); err != nil {
			return fmt.Errorf("failed to index %s: %w", a.Path, err)
		}
		if batch.Size() >= batchSize {
			if err := b.index.Batch(batch); err != nil {
				return fmt.Errorf("failed to write batch: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
	}
	return nil
}

// Search runs a match query over document content and returns up to limit hits,
// best first, with highlighted fragments.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, filter Filter) ([]*models.SearchHit, error) {
	req := bleve.NewSearchRequest(buildQuery(query, filter))
	req.Size = limit
	req.Fields = []string{fieldRunID, fieldDocID, fieldPath, fieldCategory, fieldCluster, fieldTopic}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(fieldContent)

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	hits := make([]*models.SearchHit, len(results.Hits))
	for i, h := range results.Hits {
		hits[i] = &models.SearchHit{
			DocumentID: stringField(h.Fields, fieldDocID),
			RunID:      stringField(h.Fields, fieldRunID),
			Path:       stringField(h.Fields, fieldPath),
			Category:   stringField(h.Fields, fieldCategory),
			Cluster:    intField(h.Fields, fieldCluster),
			Topic:      intField(h.Fields, fieldTopic),
			Score:      h.Score,
			Highlights: h.Fragments,
		}
	}
	return hits, nil
}

func buildQuery(query string, filter Filter) blevequery.Query {
	var text blevequery.Query
	if filter.Fuzziness > 0 {
		text = buildFuzzyQuery(query, filter.Fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(fieldContent)
		text = mq
	}

	must := []blevequery.Query{text}
	if filter.RunID != "" {
		tq := bleve.NewTermQuery(filter.RunID)
		tq.SetField(fieldRunID)
		must = append(must, tq)
	}
	if filter.Cluster != nil {
		must = append(must, numericEquals(fieldCluster, *filter.Cluster))
	}
	if len(must) == 1 {
		return text
	}
	return bleve.NewConjunctionQuery(must...)
}

func numericEquals(field string, v int) blevequery.Query {
	f := float64(v)
	inclusive := true
	q := bleve.NewNumericRangeInclusiveQuery(&f, &f, &inclusive, &inclusive)
	q.SetField(field)
	return q
}

// buildFuzzyQuery matches any query term within fuzziness edits.
func buildFuzzyQuery(query string, fuzziness int) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(fieldContent)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(fieldContent)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DeleteRun removes every document indexed for runID.
func (b *BleveIndex) DeleteRun(ctx context.Context, runID string) error {
	for {
		tq := bleve.NewTermQuery(runID)
		tq.SetField(fieldRunID)
		req := bleve.NewSearchRequest(tq)
		req.Size = batchSize
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("Bleve search failed: %w", err)
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, h := range results.Hits {
			batch.Delete(h.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete run %s: %w", runID, err)
		}
	}
}

// DocCount returns the total number of indexed documents across runs.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

func hitID(runID, docID string) string {
	return runID + "/" + docID
}

func stringField(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

func intField(fields map[string]interface{}, name string) int {
	f, _ := fields[name].(float64)
	return int(f)
}
