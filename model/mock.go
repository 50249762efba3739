package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MockModel is a lightweight offline Model. It answers with a canned reply for
// known prompts and otherwise echoes the latest user text.
type MockModel struct {
	info      Info
	mu        sync.RWMutex
	responses map[string]string
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Generate implements Model.
func (m *MockModel) Generate(_ context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)
	defer close(respCh)
	defer close(errCh)

	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			input = req.Messages[i].Text()
			break
		}
	}
	if input == "" {
		errCh <- errors.New("no user message provided")
		return respCh, errCh
	}
	m.mu.RLock()
	full := m.responses[input]
	m.mu.RUnlock()
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", input)
	}
	respCh <- Response{Message: AssistantText(full), FinishReason: "stop"}
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// Step produces one scripted reply.
type Step func(ctx context.Context, req Request) (Response, error)

// ErrScriptExhausted is returned when a ScriptedModel runs out of steps.
var ErrScriptExhausted = errors.New("scripted model has no more steps")

// ScriptedModel replays a fixed sequence of steps and records every request.
type ScriptedModel struct {
	mu       sync.Mutex
	steps    []Step
	requests []Request
}

// NewScriptedModel creates a model that answers with steps in order.
func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{steps: steps}
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var step Step
	if len(m.steps) > 0 {
		step, m.steps = m.steps[0], m.steps[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if step == nil {
			errCh <- ErrScriptExhausted
			return
		}
		resp, err := step(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		respCh <- resp
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: "scripted", Provider: "mock", SupportsTools: true}
}

// Requests returns the recorded requests.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Calls returns how many generations were requested.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reply answers with text.
func Reply(text string) Step {
	return func(context.Context, Request) (Response, error) {
		return Response{Message: AssistantText(text), FinishReason: "stop"}, nil
	}
}

// CallAction requests an action with raw JSON arguments.
func CallAction(id, name, args string) Step {
	return func(context.Context, Request) (Response, error) {
		return Response{
			Message: Message{
				Role:  RoleAssistant,
				Parts: []Part{ActionCallPart{ID: id, Name: name, Arguments: args}},
			},
			FinishReason: "tool_calls",
		}, nil
	}
}

// Fail returns err.
func Fail(err error) Step {
	return func(context.Context, Request) (Response, error) {
		return Response{}, err
	}
}

// Hang blocks until the context is done.
func Hang() Step {
	return func(ctx context.Context, _ Request) (Response, error) {
		<-ctx.Done()
		return Response{}, ctx.Err()
	}
}
