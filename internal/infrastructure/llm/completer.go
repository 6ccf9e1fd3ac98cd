package llm

import "context"

// Completer sends one system + user prompt pair and returns the text reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
