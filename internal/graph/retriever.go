package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/papyra/papyra/internal/embedding"
	"github.com/papyra/papyra/internal/llm"
)

// EntitySearcher is the slice of Store the retriever needs.
type EntitySearcher interface {
	SearchEntities(ctx context.Context, embedding []float32, topK int) ([]*EntityHit, error)
}

// Retriever answers a question from the knowledge graph alone: it embeds the
// question, finds the nearest entities through the graph's vector index, and
// has the generation model synthesize an answer fragment from their
// relations.
type Retriever struct {
	store    EntitySearcher
	embedder embedding.Embedder
	chat     llm.ChatClient
	topK     int
}

// NewRetriever creates a graph retriever. topK bounds the entity lookup.
func NewRetriever(store EntitySearcher, embedder embedding.Embedder, chat llm.ChatClient, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{store: store, embedder: embedder, chat: chat, topK: topK}
}

// Retrieve returns a natural-language answer fragment grounded in the graph.
func (r *Retriever) Retrieve(ctx context.Context, question string) (string, error) {
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}
	hits, err := r.store.SearchEntities(ctx, vec, r.topK)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "The knowledge graph contains no entities relevant to this question.", nil
	}
	answer, err := r.chat.Complete(ctx, synthesisPrompt(question, hits))
	if err != nil {
		return "", fmt.Errorf("graph answer synthesis: %w", err)
	}
	return answer, nil
}

func synthesisPrompt(question string, hits []*EntityHit) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using ONLY the knowledge graph facts below. ")
	sb.WriteString("If the facts are insufficient, say so.\n\nFacts:\n")
	for _, h := range hits {
		fmt.Fprintf(&sb, "- %s (%s)", h.Name, h.Type)
		if len(h.Sources) > 0 {
			fmt.Fprintf(&sb, ", mentioned in %s", strings.Join(h.Sources, ", "))
		}
		sb.WriteString("\n")
		for _, rel := range h.Relations {
			fmt.Fprintf(&sb, "  - %s\n", rel)
		}
	}
	fmt.Fprintf(&sb, "\nQuestion: %s\n\nAnswer:", question)
	return sb.String()
}
