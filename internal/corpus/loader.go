// Package corpus loads a directory tree of documents, one category per
// first-level subdirectory, and tokenizes them.
package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/doctopics/internal/extract"
	"github.com/hyperjump/doctopics/internal/fileid"
	"github.com/hyperjump/doctopics/internal/models"
	"go.uber.org/zap"
)

// Tokenize splits text on whitespace. No other normalization is applied.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Loader reads corpus directories into documents.
type Loader struct {
	extractor    *extract.Extractor
	extensions   []string
	categories   map[string]bool
	recursive    bool
	maxDocuments int
	logger       *zap.Logger // optional; when set, logs skipped files
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets a logger for skipped files and load summaries.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithExtensions restricts loading to the given extensions (case-insensitive).
func WithExtensions(exts []string) LoaderOption {
	return func(ld *Loader) { ld.extensions = exts }
}

// WithCategories restricts loading to the named category subdirectories.
func WithCategories(categories []string) LoaderOption {
	return func(ld *Loader) {
		if len(categories) == 0 {
			ld.categories = nil
			return
		}
		ld.categories = make(map[string]bool, len(categories))
		for _, c := range categories {
			ld.categories[c] = true
		}
	}
}

// WithRecursive controls whether directories below the category level are walked.
func WithRecursive(recursive bool) LoaderOption {
	return func(ld *Loader) { ld.recursive = recursive }
}

// WithMaxDocuments keeps only the first n documents by path; 0 means no limit.
func WithMaxDocuments(n int) LoaderOption {
	return func(ld *Loader) { ld.maxDocuments = n }
}

// NewLoader creates a loader. extractor may be nil; then files are read as plain text.
func NewLoader(extractor *extract.Extractor, opts ...LoaderOption) *Loader {
	ld := &Loader{extractor: extractor, recursive: true}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load walks each directory and returns its documents sorted by path. Files that
// cannot be extracted are skipped and logged. Returns an error when a directory
// cannot be walked.
func (ld *Loader) Load(ctx context.Context, dirs []string) ([]*models.Document, error) {
	seen := make(map[string]bool)
	var docs []*models.Document
	for _, dir := range dirs {
		loaded, err := ld.loadDirectory(ctx, dir, seen)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	if ld.maxDocuments > 0 && len(docs) > ld.maxDocuments {
		docs = docs[:ld.maxDocuments]
	}
	if ld.logger != nil {
		ld.logger.Info("corpus loaded", zap.Int("documents", len(docs)), zap.Strings("directories", dirs))
	}
	return docs, nil
}

func (ld *Loader) loadDirectory(ctx context.Context, dir string, seen map[string]bool) ([]*models.Document, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var docs []*models.Document
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, _ := filepath.Rel(absDir, path)
		depth := len(strings.Split(rel, string(filepath.Separator)))
		if d.IsDir() {
			if path == absDir {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if depth == 1 && ld.categories != nil && !ld.categories[d.Name()] {
				return filepath.SkipDir
			}
			if depth > 1 && !ld.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !ld.Accepts(path) || seen[path] {
			return nil
		}
		category := Category(absDir, path)
		if depth == 1 && ld.categories != nil && !ld.categories[category] {
			return nil
		}
		// Resolve symlinks so we only load regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		doc, err := ld.loadFile(path, category, finfo)
		if err != nil {
			if ld.logger != nil {
				ld.logger.Warn("corpus skipping file", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		seen[path] = true
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadFile reads a single file below root.
func (ld *Loader) LoadFile(root, path string) (*models.Document, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	return ld.loadFile(absPath, Category(absRoot, absPath), info)
}

func (ld *Loader) loadFile(path, category string, info os.FileInfo) (*models.Document, error) {
	text, err := ld.extractContent(path)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	return &models.Document{
		ID:       fileid.DocID(path),
		Path:     path,
		Category: category,
		Content:  text,
		Tokens:   Tokenize(text),
		ModTime:  info.ModTime(),
	}, nil
}

func (ld *Loader) extractContent(path string) (string, error) {
	if ld.extractor != nil {
		return ld.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Accepts reports whether path should be loaded: it is not hidden and either
// has no extension (news articles are plain files) or an allowed one. With no
// extension list every file is accepted.
func (ld *Loader) Accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := filepath.Ext(path)
	if len(ld.extensions) == 0 || ext == "" {
		return true
	}
	return extensionAllowed(ext, ld.extensions)
}

// Category returns the first path component of path below root, or the base
// name of root for files directly inside it.
func Category(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Base(root)
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return filepath.Base(root)
	}
	return parts[0]
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
