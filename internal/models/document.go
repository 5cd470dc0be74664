// Package models defines core data structures for documents, chunks, graph
// records, and query results.
package models

import "fmt"

// PageText is the extracted text of a single PDF page.
type PageText struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// DocumentMetadata describes a processed source document.
type DocumentMetadata struct {
	Filename string `json:"filename"`
	NumPages int    `json:"num_pages"`
	HasText  bool   `json:"has_text"`
}

// ProcessedDocument is the output of PDF text extraction, persisted as one
// JSON file per paper.
type ProcessedDocument struct {
	Metadata DocumentMetadata `json:"metadata"`
	FullText string           `json:"full_text"`
	Pages    []PageText       `json:"pages"`
}

// Validate checks required fields on a processed document.
func (d *ProcessedDocument) Validate() error {
	if d.Metadata.Filename == "" {
		return fmt.Errorf("processed document missing filename")
	}
	if d.Metadata.NumPages < 0 {
		return fmt.Errorf("processed document %s: negative page count", d.Metadata.Filename)
	}
	return nil
}
