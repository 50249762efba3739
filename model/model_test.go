package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Variants(t *testing.T) {
	answer := Response{Message: AssistantText("Restart the router.")}
	_, ok := answer.ActionCall()
	assert.False(t, ok)
	assert.Equal(t, "Restart the router.", answer.Text())

	call := Response{Message: Message{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "Let me check."},
		ActionCallPart{ID: "c1", Name: "check_system_status", Arguments: `{"system_name":"vpn"}`},
		ActionCallPart{ID: "c2", Name: "check_system_status", Arguments: `{"system_name":"email"}`},
	}}}
	first, ok := call.ActionCall()
	require.True(t, ok)
	assert.Equal(t, "c1", first.ID)
	assert.Len(t, call.ActionCalls(), 2)
	assert.Equal(t, "Let me check.", call.Text())
}

func TestGenerate_WrapsErrors(t *testing.T) {
	ctx := context.Background()
	m := NewScriptedModel(Reply("hi"), Fail(errors.New("rate limited")))

	resp, err := Generate(ctx, m, Request{Messages: []Message{UserText("hello")}})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text())

	_, err = Generate(ctx, m, Request{})
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "scripted", gerr.Model)
	assert.False(t, gerr.Timeout())
	assert.Contains(t, err.Error(), "rate limited")

	_, err = Generate(ctx, m, Request{})
	require.ErrorIs(t, err, ErrScriptExhausted)
	assert.Equal(t, 3, m.Calls())
}

func TestGenerate_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Generate(ctx, NewScriptedModel(Hang()), Request{})
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.True(t, gerr.Timeout())
}

func TestScriptedModel_RecordsRequests(t *testing.T) {
	m := NewScriptedModel(CallAction("call_1", "create_support_ticket", `{}`), Reply("done"))
	req := Request{Instructions: "be brief", Messages: []Message{UserText("open a ticket")}}

	resp, err := Generate(context.Background(), m, req)
	require.NoError(t, err)
	call, ok := resp.ActionCall()
	require.True(t, ok)
	assert.Equal(t, "create_support_ticket", call.Name)
	assert.Equal(t, "tool_calls", resp.FinishReason)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "be brief", reqs[0].Instructions)
}

func TestMockModel(t *testing.T) {
	m := NewMockModel("echo")
	m.AddResponse("ping", "pong")

	resp, err := Generate(context.Background(), m, Request{Messages: []Message{UserText("ping")}})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Text())

	resp, err = Generate(context.Background(), m, Request{Messages: []Message{UserText("vpn down"), AssistantText("ok")}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: vpn down", resp.Text())

	_, err = Generate(context.Background(), m, Request{})
	require.Error(t, err)
	assert.Equal(t, "mock", m.Info().Provider)
}
