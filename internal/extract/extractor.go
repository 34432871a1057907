// Package extract turns the document formats a corpus may hold into plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// reader converts raw file bytes into text.
type reader func(content []byte) (string, error)

// readers maps a lower-case extension to its reader. Anything else is read as plain text.
var readers = map[string]reader{
	".txt":  readPlain,
	".md":   readPlain,
	".rst":  readPlain,
	".pdf":  readPDF,
	".docx": readDOCX,
	".odt":  readCat,
	".rtf":  readCat,
	".xlsx": readExcel,
}

// Extensions lists the extensions with a dedicated reader, sorted.
var Extensions = func() []string {
	exts := make([]string, 0, len(readers))
	for ext := range readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}()

// Supports reports whether ext (with leading dot, any case) has a dedicated reader.
func Supports(ext string) bool {
	_, ok := readers[strings.ToLower(ext)]
	return ok
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content according to ext (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	read, ok := readers[strings.ToLower(ext)]
	if !ok {
		read = readPlain
	}
	return read(content)
}
