package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragdesk/model"
)

func TestBuildMessages(t *testing.T) {
	req := model.Request{
		Instructions: "You are an IT assistant.",
		Messages: []model.Message{
			model.UserText("Is the VPN up?"),
			{Role: model.RoleAssistant, Parts: []model.Part{
				model.ActionCallPart{ID: "call_1", Name: "check_system_status", Arguments: `{"system_name":"vpn"}`},
			}},
			{Role: model.RoleTool, Parts: []model.Part{
				model.ActionResultPart{ID: "call_1", Name: "check_system_status", Content: `{"status":"operational"}`},
			}},
		},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "check_system_status", msgs[2].OfAssistant.ToolCalls[0].Function.Name)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "call_1", msgs[3].OfTool.ToolCallID)
}

func TestModel_GenerateRoundTrip(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 0,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{"id": "call_9", "type": "function", "function": {"name": "check_system_status", "arguments": "{\"system_name\":\"printer\"}"}}]
				}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`))
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithBaseURL(srv.URL+"/"), option.WithAPIKey("test"), option.WithMaxRetries(0))
	m := NewModelFromClient(&client, func(o *Options) { o.Model = "gpt-4o-mini" })

	resp, err := model.Generate(context.Background(), m, model.Request{
		Instructions: "Answer from context.",
		Messages:     []model.Message{model.UserText("printer broken?")},
		Tools: []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{
			Name:        "check_system_status",
			Description: "Check a system",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		}}},
	})
	require.NoError(t, err)

	call, ok := resp.ActionCall()
	require.True(t, ok)
	assert.Equal(t, "call_9", call.ID)
	assert.JSONEq(t, `{"system_name":"printer"}`, call.Arguments)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, 19, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	msgs := captured["messages"].([]any)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestModel_GenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithBaseURL(srv.URL+"/"), option.WithAPIKey("test"), option.WithMaxRetries(0))
	m := NewModelFromClient(&client)

	_, err := model.Generate(context.Background(), m, model.Request{Messages: []model.Message{model.UserText("hi")}})
	var gerr *model.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "openai", m.Info().Provider)
}
