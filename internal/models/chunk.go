package models

import "fmt"

// Chunk is a bounded contiguous slice of a source document's text, the unit
// of retrieval. Chunks are immutable once created; the embedding stage adds
// the Embedding field to the same record.
type Chunk struct {
	ChunkID    string    `json:"chunk_id"`
	SourceFile string    `json:"source_file"`
	Text       string    `json:"text"`
	CharCount  int       `json:"char_count"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// Validate checks required fields on a chunk record. It does not require an
// embedding; embedding presence is enforced when the vector index is built.
func (c *Chunk) Validate() error {
	if c.ChunkID == "" {
		return fmt.Errorf("chunk missing chunk_id")
	}
	if c.SourceFile == "" {
		return fmt.Errorf("chunk %s missing source_file", c.ChunkID)
	}
	if c.Text == "" {
		return fmt.Errorf("chunk %s has empty text", c.ChunkID)
	}
	return nil
}
