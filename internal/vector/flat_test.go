package vector

import (
	"math"
	"testing"

	"github.com/papyra/papyra/internal/models"
)

func testChunks(embeddings ...[]float32) []*models.Chunk {
	chunks := make([]*models.Chunk, len(embeddings))
	for i, emb := range embeddings {
		chunks[i] = &models.Chunk{
			ChunkID:    "doc.pdf_chunk_" + string(rune('0'+i)),
			SourceFile: "doc.pdf",
			Text:       "text",
			CharCount:  4,
			Embedding:  emb,
		}
	}
	return chunks
}

func TestNewFlatIndex_Validation(t *testing.T) {
	if _, err := NewFlatIndex(nil); err == nil {
		t.Error("expected error for empty chunk set")
	}
	if _, err := NewFlatIndex(testChunks([]float32{})); err == nil {
		t.Error("expected error for missing embedding")
	}
	if _, err := NewFlatIndex(testChunks([]float32{1, 0}, []float32{1, 0, 0})); err == nil {
		t.Error("expected error for dimension mismatch")
	}
	chunks := testChunks([]float32{1, 0})
	chunks[0].Text = ""
	if _, err := NewFlatIndex(chunks); err == nil {
		t.Error("expected error for invalid chunk record")
	}
}

func TestFlatIndex_Search(t *testing.T) {
	idx, err := NewFlatIndex(testChunks(
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{1, 1},
	))
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 || idx.Dimensions() != 2 {
		t.Fatalf("Size=%d Dimensions=%d", idx.Size(), idx.Dimensions())
	}

	hits, err := idx.Search([]float32{0.9, 0.1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Chunk.ChunkID != "doc.pdf_chunk_0" {
		t.Errorf("nearest should be chunk 0, got %s", hits[0].Chunk.ChunkID)
	}
	if math.Abs(hits[0].Distance-0.02) > 1e-6 {
		t.Errorf("chunk 0 distance=%f, want 0.02", hits[0].Distance)
	}
	if hits[1].Chunk.ChunkID != "doc.pdf_chunk_2" {
		t.Errorf("second should be chunk 2, got %s", hits[1].Chunk.ChunkID)
	}
	if math.Abs(hits[1].Distance-0.82) > 1e-6 {
		t.Errorf("chunk 2 distance=%f, want 0.82", hits[1].Distance)
	}
	if hits[0].Rank != 1 || hits[1].Rank != 2 {
		t.Errorf("ranks=%d,%d, want 1,2", hits[0].Rank, hits[1].Rank)
	}
}

func TestFlatIndex_SelfMatch(t *testing.T) {
	idx, _ := NewFlatIndex(testChunks(
		[]float32{0.5, 0.5},
		[]float32{-1, 2},
	))
	hits, err := idx.Search([]float32{0.5, 0.5}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Chunk.ChunkID != "doc.pdf_chunk_0" || hits[0].Distance != 0 {
		t.Errorf("self match should be rank 1 with distance 0, got %s d=%f",
			hits[0].Chunk.ChunkID, hits[0].Distance)
	}
}

func TestFlatIndex_TopKClamp(t *testing.T) {
	idx, _ := NewFlatIndex(testChunks([]float32{1, 0}, []float32{0, 1}))
	hits, err := idx.Search([]float32{0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("top_k beyond size should return all chunks, got %d", len(hits))
	}
}

func TestFlatIndex_TieStability(t *testing.T) {
	// Equidistant chunks keep insertion order.
	idx, _ := NewFlatIndex(testChunks([]float32{1, 0}, []float32{0, 1}, []float32{-1, 0}))
	hits, err := idx.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	order := []string{"doc.pdf_chunk_0", "doc.pdf_chunk_1", "doc.pdf_chunk_2"}
	for i, h := range hits {
		if h.Chunk.ChunkID != order[i] {
			t.Errorf("position %d: got %s, want %s", i, h.Chunk.ChunkID, order[i])
		}
	}
}

func TestFlatIndex_SearchErrors(t *testing.T) {
	idx, _ := NewFlatIndex(testChunks([]float32{1, 0}))
	if _, err := idx.Search([]float32{1, 0, 0}, 1); err == nil {
		t.Error("expected error for query dimension mismatch")
	}
	if _, err := idx.Search([]float32{1, 0}, 0); err == nil {
		t.Error("expected error for non-positive top_k")
	}
}
