package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/doctopics/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		num_documents INTEGER NOT NULL,
		k INTEGER NOT NULL,
		num_topics INTEGER NOT NULL,
		embedding_dim INTEGER NOT NULL,
		inertia REAL NOT NULL,
		config TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS documents (
		run_id TEXT NOT NULL,
		doc_index INTEGER NOT NULL,
		id TEXT NOT NULL,
		path TEXT NOT NULL,
		category TEXT,
		tokens INTEGER NOT NULL,
		cluster INTEGER NOT NULL,
		dominant_topic INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		PRIMARY KEY (run_id, doc_index),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_documents_cluster ON documents(run_id, cluster);

	CREATE TABLE IF NOT EXISTS topics (
		run_id TEXT NOT NULL,
		topic_index INTEGER NOT NULL,
		terms TEXT NOT NULL,
		PRIMARY KEY (run_id, topic_index),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRun stores a run with its assignments and topics in one transaction.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *models.Run, docs []*models.DocumentAssignment, topics []models.Topic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, num_documents, k, num_topics, embedding_dim, inertia, config)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.NumDocuments, run.K, run.NumTopics, run.EmbeddingDim, run.Inertia, run.Config,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	docStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (run_id, doc_index, id, path, category, tokens, cluster, dominant_topic, x, y)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer docStmt.Close()

	for _, d := range docs {
		if _, err := docStmt.ExecContext(ctx,
			run.ID, d.Index, d.ID, d.Path, d.Category, d.NumTokens, d.Cluster, d.DominantTopic, d.X, d.Y,
		); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", d.ID, err)
		}
	}

	topicStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO topics (run_id, topic_index, terms) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer topicStmt.Close()

	for _, t := range topics {
		terms, err := json.Marshal(t.Terms)
		if err != nil {
			return fmt.Errorf("failed to marshal topic terms: %w", err)
		}
		if _, err := topicStmt.ExecContext(ctx, run.ID, t.Index, string(terms)); err != nil {
			return fmt.Errorf("failed to insert topic %d: %w", t.Index, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, created_at, num_documents, k, num_topics, embedding_dim, inertia, config`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var run models.Run
	var config sql.NullString
	if err := row.Scan(&run.ID, &run.CreatedAt, &run.NumDocuments, &run.K, &run.NumTopics,
		&run.EmbeddingDim, &run.Inertia, &config); err != nil {
		return nil, err
	}
	run.Config = config.String
	return &run, nil
}

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// LatestRun returns the most recently created run.
func (s *SQLiteStorage) LatestRun(ctx context.Context) (*models.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ListRuns returns runs newest first with offset and limit.
func (s *SQLiteStorage) ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetAssignments returns the documents of a run ordered by corpus index.
func (s *SQLiteStorage) GetAssignments(ctx context.Context, runID string) ([]*models.DocumentAssignment, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, doc_index, id, path, category, tokens, cluster, dominant_topic, x, y
		 FROM documents WHERE run_id = ? ORDER BY doc_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.DocumentAssignment
	for rows.Next() {
		var d models.DocumentAssignment
		var category sql.NullString
		if err := rows.Scan(&d.RunID, &d.Index, &d.ID, &d.Path, &category, &d.NumTokens,
			&d.Cluster, &d.DominantTopic, &d.X, &d.Y); err != nil {
			return nil, err
		}
		d.Category = category.String
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// GetTopics returns the topics of a run ordered by index.
func (s *SQLiteStorage) GetTopics(ctx context.Context, runID string) ([]models.Topic, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic_index, terms FROM topics WHERE run_id = ? ORDER BY topic_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var t models.Topic
		var terms string
		if err := rows.Scan(&t.Index, &terms); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(terms), &t.Terms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal topic terms: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// DeleteRun removes a run with its documents and topics.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CountRuns returns the total number of runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
