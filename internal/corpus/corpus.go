// Package corpus loads and chunks the knowledge base.
//
// A corpus is a directory of .txt sources read once at startup. Each source
// is split into paragraph chunks; chunk boundaries depend only on the source
// content, so identical input always yields identical document IDs.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors, checkable with errors.Is.
var (
	// ErrNotFound indicates the knowledge base directory does not exist.
	ErrNotFound = errors.New("knowledge base not found")

	// ErrUnreadable indicates a source file could not be read.
	ErrUnreadable = errors.New("unreadable source")

	// ErrEmptySource indicates a source file is empty after trimming.
	ErrEmptySource = errors.New("empty source")
)

// maxChunkSize is the greedy packing limit in characters per chunk.
// Matches the original knowledge-base deployment.
const maxChunkSize = 500

// Document is one addressable chunk of a source file.
// Immutable once loaded.
type Document struct {
	// ID is "<source filename>:<chunk index>", stable across runs.
	ID string

	// Source is the path of the file the chunk came from.
	Source string

	// Text is the chunk content.
	Text string

	// Chunk is the zero-based chunk index within the source.
	Chunk int
}

// Load reads every .txt file under dir and returns its paragraph chunks.
// Files are processed in lexical order so document insertion order is
// deterministic. A directory without any .txt file yields an empty slice;
// the index build turns that into an empty-corpus failure.
func Load(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, dir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
		}

		content := strings.TrimSpace(string(data))
		if content == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptySource, path)
		}

		for i, chunk := range splitChunks(content) {
			docs = append(docs, Document{
				ID:     fmt.Sprintf("%s:%d", entry.Name(), i),
				Source: path,
				Text:   chunk,
				Chunk:  i,
			})
		}
	}

	return docs, nil
}

// splitChunks splits text on blank lines and greedily packs consecutive
// paragraphs into chunks of at most maxChunkSize characters. A single
// paragraph longer than the limit becomes its own chunk.
func splitChunks(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, p := range strings.Split(normalized, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		return []string{strings.TrimSpace(normalized)}
	}

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		if current.Len() > 0 && current.Len()+len(p) >= maxChunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(p)
		current.WriteString("\n\n")
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks
}
