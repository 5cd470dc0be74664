// Package vector provides an in-memory flat index for exact nearest-neighbor
// search over chunk embeddings.
package vector

import (
	"fmt"
	"sort"

	"github.com/papyra/papyra/internal/models"
)

// Hit is a single nearest-neighbor result. Distance is squared Euclidean;
// rank starts at 1 for the nearest chunk.
type Hit struct {
	Chunk    *models.Chunk
	Distance float64
	Rank     int
}

// FlatIndex holds all chunk embeddings and answers top-k queries by
// brute-force squared Euclidean distance (exact, no approximation). The index
// is built once and read-only afterwards, so it is safe for concurrent
// readers.
type FlatIndex struct {
	dimensions int
	chunks     []*models.Chunk
}

// NewFlatIndex builds an index from chunks carrying embeddings. It fails
// fast if any chunk record is invalid, any embedding is absent, or the
// embedding dimensions are not uniform.
func NewFlatIndex(chunks []*models.Chunk) (*FlatIndex, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to index")
	}
	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("chunk %s has no embedding", chunks[0].ChunkID)
	}
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %s has no embedding", c.ChunkID)
		}
		if len(c.Embedding) != dim {
			return nil, fmt.Errorf("chunk %s embedding dimension mismatch: got %d, expected %d",
				c.ChunkID, len(c.Embedding), dim)
		}
	}
	return &FlatIndex{dimensions: dim, chunks: chunks}, nil
}

// Search returns the topK chunks nearest to query, ordered ascending by
// squared Euclidean distance. Ties are broken by insertion order. If topK
// exceeds the index size, all chunks are returned.
func (x *FlatIndex) Search(query []float32, topK int) ([]*Hit, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), x.dimensions)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	hits := make([]*Hit, len(x.chunks))
	for i, c := range x.chunks {
		var dist float64
		for j := 0; j < x.dimensions; j++ {
			d := float64(query[j] - c.Embedding[j])
			dist += d * d
		}
		hits[i] = &Hit{Chunk: c, Distance: dist}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if topK > len(hits) {
		topK = len(hits)
	}
	hits = hits[:topK]
	for i, h := range hits {
		h.Rank = i + 1
	}
	return hits, nil
}

// Size returns the number of indexed chunks.
func (x *FlatIndex) Size() int {
	return len(x.chunks)
}

// Dimensions returns the embedding dimension of the index.
func (x *FlatIndex) Dimensions() int {
	return x.dimensions
}
