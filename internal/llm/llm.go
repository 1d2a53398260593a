// Package llm talks to hosted chat-completion services.
package llm

import (
	"context"
	"errors"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged prompt entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// DeltaFunc receives streamed text fragments in order.
// Returning an error aborts the stream.
type DeltaFunc func(delta string) error

// Completer produces text from a role-tagged prompt, either at once or streamed.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request, onDelta DeltaFunc) (string, error)
}

var (
	ErrEmptyCompletion = errors.New("completion returned no text")
)

// System builds a request holding a single system prompt, the shape every
// game prompt uses.
func System(prompt string, temperature float32, maxTokens int) Request {
	return Request{
		Messages:    []Message{{Role: RoleSystem, Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// Run streams when onDelta is set and completes otherwise.
func Run(ctx context.Context, c Completer, req Request, onDelta DeltaFunc) (string, error) {
	if onDelta == nil {
		return c.Complete(ctx, req)
	}
	return c.Stream(ctx, req, onDelta)
}
