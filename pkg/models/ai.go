// Package models contains shared data models used across the engine.
package models

import "context"

// AIProvider is the core interface that all AI integrations must implement.
// Never call specific AI providers directly; always inject this interface.
type AIProvider interface {
	// Complete returns the model's reply to a single prompt under the given
	// system instruction.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string
}

// CompletionRequest is the input to a single model call.
type CompletionRequest struct {
	System string
	Prompt string
}
