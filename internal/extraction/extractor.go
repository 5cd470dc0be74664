// Package extraction turns chunk text into local knowledge graphs via an LLM
// and persists them into the graph store.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papyra/papyra/internal/llm"
	"github.com/papyra/papyra/internal/models"
)

const extractionPrompt = `Extract entities and relationships from the text.

Return JSON ONLY in this format. id has to be of the form E then number starting with 1:
{
  "entities": [
    {"id": "E1", "name": "X", "type": "Concept"}
  ],
  "relations": [
    {"source": "E1", "relation": "relates_to", "target": "E2"}
  ]
}

Text:
"""%s"""`

// Extractor derives a small local knowledge graph from chunk text.
type Extractor struct {
	chat llm.ChatClient
}

// NewExtractor creates an extractor backed by the given chat client.
func NewExtractor(chat llm.ChatClient) *Extractor {
	return &Extractor{chat: chat}
}

// Extract calls the generation model and parses its strict-JSON response.
// Responses wrapped in a fenced code block are unwrapped before parsing; any
// response that is not valid JSON after unwrapping is an error.
func (e *Extractor) Extract(ctx context.Context, text string) (*models.Extraction, error) {
	raw, err := e.chat.Complete(ctx, fmt.Sprintf(extractionPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}
	content := StripCodeFence(raw)
	var extraction models.Extraction
	if err := json.Unmarshal([]byte(content), &extraction); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	if err := extraction.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction: %w", err)
	}
	return &extraction, nil
}

// StripCodeFence removes a surrounding fenced code block (with or without a
// language tag) from s. Unfenced input is returned trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
