// Package llm wraps text generation behind a small gateway interface so the
// answering pipeline can be tested without a live model.
package llm

import (
	"context"
	"errors"
)

// ErrGeneration indicates the model call failed or returned nothing usable.
var ErrGeneration = errors.New("text generation failed")

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one prior conversation message sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Request carries everything a single generation needs.
type Request struct {
	// System is the system instruction, empty to omit.
	System string
	// History is prior conversation, oldest first.
	History []Message
	// Prompt is the current user message.
	Prompt string
}

// Client generates a text completion.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}
