package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragdesk"
	"github.com/hupe1980/ragdesk/config"
	"github.com/hupe1980/ragdesk/embedding"
	"github.com/hupe1980/ragdesk/logging"
	"github.com/hupe1980/ragdesk/model"
)

const corpusJSON = `[
 {"id":"KB001","category":"Account Access","title":"How to Reset Your Password","content":"Open the self-service portal and choose Forgot Password.","tags":["password"]},
 {"id":"KB002","category":"Network","title":"VPN Connection Troubleshooting","content":"Restart the VPN client.","tags":["vpn"]}
]`

func newTestServer(t *testing.T, steps ...model.Step) (*httptest.Server, *ragdesk.Desk) {
	t.Helper()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "kb.json")
	require.NoError(t, os.WriteFile(corpus, []byte(corpusJSON), 0o600))

	cfg := &config.Config{Provider: config.ProviderMock}
	cfg.Knowledge.CorpusPath = corpus
	cfg.Knowledge.IndexPath = filepath.Join(dir, "index.json")
	config.ApplyDefaults(cfg)
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}

	desk, err := ragdesk.New(cfg, func(o *ragdesk.Options) {
		o.Logger = logging.NoOpLogger{}
		o.Embedder = &embedding.StaticEmbedder{Fallback: []float32{1, 0}}
		if len(steps) > 0 {
			o.Model = model.NewScriptedModel(steps...)
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = desk.Close() })

	srv := httptest.NewServer(New(desk, cfg.Server, logging.NoOpLogger{}).Handler())
	t.Cleanup(srv.Close)
	return srv, desk
}

func do(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Router generated errors carry no JSON body.
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func createSession(t *testing.T, base string) string {
	t.Helper()
	resp, out := do(t, http.MethodPost, base+"/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := out["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, out := do(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, false, out["index_loaded"])
}

func TestConversationFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL

	resp, out := do(t, http.MethodPost, base+"/api/v1/index/rebuild", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, out["chunks"])

	id := createSession(t, base)

	resp, out = do(t, http.MethodPost, base+"/api/v1/sessions/"+id+"/messages", map[string]string{"message": "reset my password"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Mock response to: reset my password", out["answer"])
	assert.Equal(t, "answered", out["outcome"])
	sources, _ := out["sources"].([]any)
	assert.Len(t, sources, 2)

	resp, out = do(t, http.MethodGet, base+"/api/v1/sessions/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	turns, _ := out["turns"].([]any)
	assert.Len(t, turns, 2)

	resp, _ = do(t, http.MethodDelete, base+"/api/v1/sessions/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, out = do(t, http.MethodGet, base+"/api/v1/sessions/"+id+"/history?max=5", nil)
	turns, _ = out["turns"].([]any)
	assert.Empty(t, turns)

	resp, _ = do(t, http.MethodPut, base+"/api/v1/sessions/"+id+"/threshold", map[string]float64{"threshold": 0.95})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodPut, base+"/api/v1/sessions/"+id+"/threshold", map[string]float64{"threshold": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, base+"/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/api/v1/sessions/"+id+"/messages", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessage_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createSession(t, srv.URL)

	resp, out := do(t, http.MethodPost, srv.URL+"/api/v1/sessions/"+id+"/messages", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "message is required", out["error"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/sessions/nope/history", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMessage_ActionAndTicketLookup(t *testing.T) {
	srv, _ := newTestServer(t,
		model.CallAction("c1", "create_support_ticket", `{"title":"No sound","description":"Speakers are silent","category":"hardware","priority":"low"}`),
		model.Reply("I created ticket INC1000 for you."),
	)

	id := createSession(t, srv.URL)
	resp, out := do(t, http.MethodPost, srv.URL+"/api/v1/sessions/"+id+"/messages", map[string]string{"message": "my speakers are silent"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Knowledge is unavailable before a build, so the turn ends early.
	assert.Equal(t, "retrieval_failed", out["outcome"])
	assert.Nil(t, out["action"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/index/rebuild", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out = do(t, http.MethodPost, srv.URL+"/api/v1/sessions/"+id+"/messages", map[string]string{"message": "my speakers are silent"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	act, ok := out["action"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "create_support_ticket", act["name"])
	assert.Equal(t, "success", act["outcome"])
	payload, _ := act["payload"].(map[string]any)
	assert.Equal(t, "INC1000", payload["ticket_id"])

	resp, out = do(t, http.MethodGet, srv.URL+"/api/v1/tickets/INC1000", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "No sound", out["title"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/tickets/INC9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestArticles(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/articles?q=password", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/index/rebuild", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := do(t, http.MethodGet, srv.URL+"/api/v1/articles?q=password&k=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	articles, _ := out["articles"].([]any)
	require.Len(t, articles, 1)
	first := articles[0].(map[string]any)
	assert.Equal(t, "KB001", first["id"])
	assert.True(t, strings.HasPrefix(first["content_preview"].(string), "Title: How to Reset Your Password"))

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/articles", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/articles?q=x&k=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
