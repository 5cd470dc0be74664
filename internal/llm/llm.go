// Package llm provides clients for the generation services: an OpenAI-style
// chat-completions client and an Anthropic messages client.
package llm

import "context"

// ChatClient turns a single prompt into a text completion.
type ChatClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
