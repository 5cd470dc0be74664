// Package chunker splits document text into overlapping chunks for retrieval.
package chunker

import (
	"fmt"
	"strings"

	"github.com/papyra/papyra/internal/models"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators, coarsest first. The empty string is the hard character cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits text recursively on a prioritized separator list, producing
// chunks of at most chunkSize characters with approximately chunkOverlap
// characters of overlap between consecutive chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// New creates a chunker. chunkSize must be positive and chunkOverlap must be
// in [0, chunkSize).
func New(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Chunk splits text into ordered Chunk records for the given source filename.
// Chunk IDs are "{filename}_chunk_{index}" with a 0-based index. Empty input
// yields no chunks.
func (c *Chunker) Chunk(text, filename string) []*models.Chunk {
	pieces := c.split(text, separators)
	chunks := make([]*models.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, &models.Chunk{
			ChunkID:    fmt.Sprintf("%s_chunk_%d", filename, len(chunks)),
			SourceFile: filename,
			Text:       piece,
			CharCount:  len(piece),
		})
	}
	return chunks
}

// split breaks text on the coarsest separator in seps that occurs in it,
// recursing with finer separators on any piece still over chunkSize. Pieces
// keep their trailing separator so concatenation reconstructs the input.
func (c *Chunker) split(text string, seps []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	sep := ""
	var finer []string
	for i, s := range seps {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			finer = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return c.hardCut(text)
	}

	splits := splitAfter(text, sep)
	var out []string
	var fitting []string
	for _, s := range splits {
		if len(s) <= c.chunkSize {
			fitting = append(fitting, s)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, c.merge(fitting)...)
			fitting = nil
		}
		out = append(out, c.split(s, finer)...)
	}
	if len(fitting) > 0 {
		out = append(out, c.merge(fitting)...)
	}
	return out
}

// merge packs consecutive pieces into chunks of at most chunkSize characters.
// When a chunk is emitted, leading pieces are dropped until the carried-over
// tail is within chunkOverlap, preserving local context across boundaries.
func (c *Chunker) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0
	for _, p := range pieces {
		if total+len(p) > c.chunkSize && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, ""))
			for len(window) > 0 && (total > c.chunkOverlap || total+len(p) > c.chunkSize) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += len(p)
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}

// hardCut slices text into chunkSize windows advancing by chunkSize minus
// chunkOverlap. Always terminates, even for chunk sizes smaller than any
// separator-delimited token.
func (c *Chunker) hardCut(text string) []string {
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	var out []string
	for i := 0; i < len(text); i += step {
		end := i + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[i:end])
		if end == len(text) {
			break
		}
	}
	return out
}

// splitAfter splits text on sep, keeping the separator attached to the
// preceding piece.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
