package ragdesk

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragdesk/config"
	"github.com/hupe1980/ragdesk/embedding"
	"github.com/hupe1980/ragdesk/internal/testutil"
	"github.com/hupe1980/ragdesk/logging"
	"github.com/hupe1980/ragdesk/model"
	"github.com/hupe1980/ragdesk/orchestrator"
	"github.com/hupe1980/ragdesk/retrieval"
	"github.com/hupe1980/ragdesk/session"
)

func mockConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Provider: config.ProviderMock}
	cfg.Knowledge.CorpusPath = testutil.WriteCorpus(t, dir, testutil.SampleArticles()...)
	cfg.Knowledge.IndexPath = filepath.Join(dir, "index.json")
	cfg.Tickets.Path = filepath.Join(dir, "tickets.db")
	config.ApplyDefaults(cfg)
	return cfg
}

// flat embeds every text onto the same direction, so every chunk scores 1.
func flat() *embedding.StaticEmbedder {
	return &embedding.StaticEmbedder{Fallback: []float32{1, 0, 0}}
}

func newDesk(t *testing.T, cfg *config.Config, optFns ...func(o *Options)) *Desk {
	t.Helper()
	fns := append([]func(o *Options){func(o *Options) { o.Logger = logging.NoOpLogger{} }}, optFns...)
	d, err := New(cfg, fns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNew_RequiresCredentials(t *testing.T) {
	cfg := &config.Config{Provider: config.ProviderOpenAI}
	config.ApplyDefaults(cfg)

	d, err := New(cfg)
	assert.Nil(t, d)

	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
}

func TestNew_RejectsUnknownActionFlag(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Actions = map[string]bool{"format_disk": true}

	_, err := New(cfg, func(o *Options) { o.Logger = logging.NoOpLogger{} })

	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
}

func TestDesk_KnowledgeUnavailableBeforeBuild(t *testing.T) {
	d := newDesk(t, mockConfig(t))
	sess := d.NewSession("")

	_, ok := d.Index()
	assert.False(t, ok)

	b, err := d.Ask(context.Background(), sess.ID, "How do I reset my password?")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.OutcomeRetrievalFailed, b.Outcome)
	assert.Equal(t, orchestrator.KnowledgeUnavailableAnswer, b.Answer)
}

func TestDesk_EndToEnd(t *testing.T) {
	cfg := mockConfig(t)
	d := newDesk(t, cfg, func(o *Options) { o.Embedder = flat() })
	ctx := context.Background()

	info, err := d.RebuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Chunks)
	assert.NotEmpty(t, info.BuildID)

	sess := d.NewSession("s1")
	b, err := d.Ask(ctx, sess.ID, "How do I reset my password?")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.OutcomeAnswered, b.Outcome)
	assert.Equal(t, "Mock response to: How do I reset my password?", b.Answer)
	require.Len(t, b.Sources, 3)
	assert.Equal(t, "KB001", b.Sources[0].ArticleID)

	history, err := d.History(sess.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, d.Reset(sess.ID))
	history, err = d.History(sess.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, d.SetThreshold(sess.ID, 1.5), retrieval.ErrInvalidThreshold)

	_, err = d.Ask(ctx, "missing", "hi")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDesk_RelevantArticles(t *testing.T) {
	d := newDesk(t, mockConfig(t), func(o *Options) { o.Embedder = flat() })
	ctx := context.Background()
	_, err := d.RebuildIndex(ctx)
	require.NoError(t, err)

	articles, err := d.RelevantArticles(ctx, "password", 2)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "KB001", articles[0].ID)
	assert.Equal(t, "KB002", articles[1].ID)
	assert.Contains(t, articles[0].Preview, "How to Reset Your Password")
	assert.LessOrEqual(t, len([]rune(articles[0].Preview)), previewLength+3)
}

func TestDesk_PersistedIndexAndTicketsSurviveRestart(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Knowledge.IndexBackend = "sqlite"
	cfg.Knowledge.IndexPath = filepath.Join(t.TempDir(), "index.db")
	cfg.Tickets.Backend = "sqlite"
	ctx := context.Background()

	first, err := New(cfg, func(o *Options) {
		o.Logger = logging.NoOpLogger{}
		o.Embedder = flat()
		o.Model = model.NewScriptedModel(
			model.CallAction("c1", "create_support_ticket", `{"title":"Broken mouse","description":"Left button stuck","category":"hardware"}`),
			model.Reply("Ticket INC1000 created."),
		)
	})
	require.NoError(t, err)
	built, err := first.RebuildIndex(ctx)
	require.NoError(t, err)

	sess := first.NewSession("")
	b, err := first.Ask(ctx, sess.ID, "my mouse is broken")
	require.NoError(t, err)
	require.NotNil(t, b.Action)
	require.True(t, b.Action.Succeeded())
	require.NoError(t, first.Close())

	second := newDesk(t, cfg, func(o *Options) { o.Embedder = flat() })
	info, ok := second.Index()
	require.True(t, ok)
	assert.Equal(t, built.BuildID, info.BuildID)

	tk, err := second.Ticket(ctx, "INC1000")
	require.NoError(t, err)
	assert.Equal(t, "Broken mouse", tk.Title)
}

func TestDesk_Actions(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Actions = map[string]bool{"schedule_maintenance": true}
	d := newDesk(t, cfg)

	names := make([]string, 0)
	for _, def := range d.Actions() {
		names = append(names, def.Name)
	}
	assert.Contains(t, names, "schedule_maintenance")
	assert.Len(t, names, 5)
}
