package model

import (
	"context"
	"errors"
	"fmt"
)

// ToolDefinition declaratively exposes a callable action to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual action exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a complete model reply.
type Response struct {
	ID           string      `json:"id"`
	Message      Message     `json:"message"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", ...
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Text returns the reply text.
func (r Response) Text() string { return r.Message.Text() }

// ActionCall returns the first action call in the reply, if any.
func (r Response) ActionCall() (ActionCallPart, bool) {
	for _, p := range r.Message.Parts {
		if call, ok := p.(ActionCallPart); ok {
			return call, true
		}
	}
	return ActionCallPart{}, false
}

// ActionCalls returns every action call in the reply.
func (r Response) ActionCalls() []ActionCallPart {
	var calls []ActionCallPart
	for _, p := range r.Message.Parts {
		if call, ok := p.(ActionCallPart); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Implementations
// emit exactly one Response or one error, then close both channels.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// GenerationError reports a failed generation call.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s failed: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *GenerationError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ErrNoResponse is returned when a model closes its channels without a reply.
var ErrNoResponse = errors.New("model returned no response")

// Generate runs one generation and waits for its result. Failures are wrapped
// in *GenerationError.
func Generate(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)
	var (
		resp Response
		got  bool
	)
	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			resp, got = r, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, &GenerationError{Model: m.Info().Name, Err: err}
			}
		case <-ctx.Done():
			return Response{}, &GenerationError{Model: m.Info().Name, Err: ctx.Err()}
		}
	}
	if !got {
		return Response{}, &GenerationError{Model: m.Info().Name, Err: ErrNoResponse}
	}
	return resp, nil
}
