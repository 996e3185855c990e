// Package llm provides text generation providers used for hypothetical
// document generation and LLM-assisted query processing.
package llm

import "context"

// GenerateOptions control a single generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float32
}

// Provider generates text completions for a prompt.
type Provider interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the model identifier for logging and stats.
	ModelName() string

	// Close releases any held resources.
	Close() error
}
