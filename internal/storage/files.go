// Package storage reads and writes the JSON interchange files of the offline
// pipeline: processed documents, chunk files, and chunk-with-embedding files.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papyra/papyra/internal/models"
)

// SaveProcessedDocument writes doc as <stem>.json under dir, creating dir if
// needed. The stem is the source filename without its extension.
func SaveProcessedDocument(dir string, doc *models.ProcessedDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}
	stem := strings.TrimSuffix(doc.Metadata.Filename, filepath.Ext(doc.Metadata.Filename))
	path := filepath.Join(dir, stem+".json")
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal processed document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write processed document: %w", err)
	}
	return nil
}

// LoadProcessedDocuments reads every *.json file under dir, in filename
// order. Malformed records are rejected, not skipped.
func LoadProcessedDocuments(dir string) ([]*models.ProcessedDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read processed dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	docs := make([]*models.ProcessedDocument, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var doc models.ProcessedDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid processed document %s: %w", name, err)
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// SaveChunks writes chunks to path as a JSON array, creating the parent
// directory if needed.
func SaveChunks(path string, chunks []*models.Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create chunks dir: %w", err)
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}
	return nil
}

// LoadChunks reads a chunk file and validates every record. Chunk identity
// and ordering are preserved exactly as stored.
func LoadChunks(path string) ([]*models.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunks file: %w", err)
	}
	var chunks []*models.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunks file: %w", err)
	}
	for i, c := range chunks {
		if c == nil {
			return nil, fmt.Errorf("chunk %d is null", i)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return chunks, nil
}
