// Package ragdesk provides a high-level façade over the retrieval-augmented
// help-desk engine. Most applications interact with this package by:
//  1. Loading a config.Config and creating a Desk via New()
//  2. Building or loading the knowledge index (RebuildIndex, WatchCorpus)
//  3. Opening sessions and answering turns with Ask
//
// The façade wires the configured providers, stores and action set into an
// orchestrator.Orchestrator. Defaults are safe for local development; durable
// ticket and index backends are selected through configuration.
package ragdesk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hupe1980/ragdesk/action"
	"github.com/hupe1980/ragdesk/config"
	"github.com/hupe1980/ragdesk/embedding"
	"github.com/hupe1980/ragdesk/helpdesk"
	"github.com/hupe1980/ragdesk/logging"
	"github.com/hupe1980/ragdesk/memory"
	"github.com/hupe1980/ragdesk/model"
	"github.com/hupe1980/ragdesk/orchestrator"
	"github.com/hupe1980/ragdesk/retrieval"
	"github.com/hupe1980/ragdesk/session"
	"github.com/hupe1980/ragdesk/ticket"
)

// previewLength bounds article previews returned by RelevantArticles.
const previewLength = 200

// Options override the collaborators New would otherwise build from config.
type Options struct {
	Logger    logging.Logger
	Embedder  embedding.Embedder
	Model     model.Model
	Tickets   ticket.Store
	Persister retrieval.Persister
	Sessions  *session.InMemoryStore
}

// Desk is the high-level façade aggregating the engine and its services.
type Desk struct {
	cfg       *config.Config
	logger    logging.Logger
	sessions  *session.InMemoryStore
	tickets   ticket.Store
	registry  *action.Registry
	holder    *retrieval.Holder
	persister retrieval.Persister
	watcher   *retrieval.Watcher
	orch      *orchestrator.Orchestrator
	closers   []io.Closer
}

// ArticlePreview is a relevant knowledge article with a short excerpt.
type ArticlePreview struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Preview  string  `json:"content_preview"`
}

// IndexInfo describes the served index.
type IndexInfo struct {
	BuildID    string    `json:"build_id"`
	BuiltAt    time.Time `json:"built_at"`
	Chunks     int       `json:"chunks"`
	Dimensions int       `json:"dimensions"`
}

// New validates cfg and wires a Desk. Missing credentials or model targets
// yield a *config.ConfigurationError and no Desk.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Desk, error) {
	if cfg == nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	d := &Desk{cfg: cfg, sessions: opts.Sessions}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	if opts.Logger == nil {
		l, err := NewLogger(cfg.Logging)
		if err != nil {
			return nil, err
		}
		opts.Logger = l
	}
	d.logger = opts.Logger
	if d.sessions == nil {
		d.sessions = session.NewInMemoryStore()
	}

	embedder := opts.Embedder
	if embedder == nil {
		e, err := NewEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		embedder = e
	}
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
	}

	m := opts.Model
	if m == nil {
		var err error
		if m, err = NewModel(cfg); err != nil {
			return nil, err
		}
	}

	d.tickets = opts.Tickets
	if d.tickets == nil {
		store, closer, err := openTicketStore(cfg.Tickets)
		if err != nil {
			return nil, err
		}
		d.tickets = store
		d.addCloser(closer)
	}

	d.persister = opts.Persister
	if d.persister == nil {
		p, closer, err := openPersister(cfg.Knowledge)
		if err != nil {
			return nil, err
		}
		d.persister = p
		d.addCloser(closer)
	}

	d.registry = action.NewRegistry(func(o *action.RegistryOptions) { o.Logger = d.logger })
	if err := helpdesk.Register(d.registry, helpdesk.Deps{Tickets: d.tickets}, cfg.Actions); err != nil {
		return nil, config.NewConfigurationError("actions: %v", err)
	}

	d.holder = &retrieval.Holder{}
	d.loadIndex(embedder)

	builder := retrieval.NewBuilder(embedder, func(o *retrieval.BuilderOptions) {
		o.ChunkSize = cfg.Knowledge.ChunkSize
		o.ChunkOverlap = cfg.Knowledge.ChunkOverlap
		o.BatchSize = cfg.Embedding.BatchSize
		o.Concurrency = cfg.Knowledge.Concurrency
		o.Logger = d.logger
	})
	d.watcher = retrieval.NewWatcher(cfg.Knowledge.CorpusPath, builder, d.holder, func(o *retrieval.WatcherOptions) {
		o.Persister = d.persister
		o.Logger = d.logger
	})

	orch, err := orchestrator.New(func(o *orchestrator.Options) {
		o.Embedder = embedder
		o.Model = m
		o.Index = d.holder
		o.Actions = d.registry
		o.Logger = d.logger
		o.Threshold = cfg.Retrieval.SimilarityThreshold()
		o.TopK = cfg.Retrieval.TopK
		o.CandidateMultiplier = cfg.Retrieval.CandidateMultiplier
		o.HistoryWindow = cfg.Conversation.Window()
		o.EmbeddingTimeout = cfg.Timeouts.Embedding
		o.GenerationTimeout = cfg.Timeouts.Generation
		o.Retries = cfg.Timeouts.RetryCount()
	})
	if err != nil {
		return nil, err
	}
	d.orch = orch

	d.logger.Info("ragdesk.ready",
		"provider", cfg.Provider,
		"model", m.Info().Name,
		"actions", len(d.registry.Definitions()),
		"index_loaded", d.holder.Load() != nil,
	)
	ok = true
	return d, nil
}

// loadIndex publishes the persisted index when one exists and matches the
// embedder's dimensionality.
func (d *Desk) loadIndex(e embedding.Embedder) {
	store, err := d.persister.Load(context.Background())
	switch {
	case errors.Is(err, retrieval.ErrNoSnapshot):
		d.logger.Warn("ragdesk.index.missing", "hint", "run build-index")
		return
	case err != nil:
		d.logger.Error("ragdesk.index.load_failed", "error", err)
		return
	}
	if dims := e.Dimensions(); dims > 0 && store.Dimensions() != dims {
		d.logger.Warn("ragdesk.index.dimension_mismatch", "index", store.Dimensions(), "embedder", dims)
		return
	}
	d.holder.Publish(store)
	d.logger.Info("ragdesk.index.loaded", "build_id", store.BuildID(), "chunks", store.Len())
}

func (d *Desk) addCloser(c io.Closer) {
	if c != nil {
		d.closers = append(d.closers, c)
	}
}

// Config returns the configuration the desk was built with.
func (d *Desk) Config() *config.Config { return d.cfg }

// Logger returns the desk logger.
func (d *Desk) Logger() logging.Logger { return d.logger }

// NewSession opens a conversation. An empty id gets a random one.
func (d *Desk) NewSession(id string) *session.Session { return d.sessions.Create(id) }

// Session returns an open conversation.
func (d *Desk) Session(id string) (*session.Session, error) { return d.sessions.Get(id) }

// DeleteSession forgets a conversation.
func (d *Desk) DeleteSession(id string) { d.sessions.Delete(id) }

// Ask answers one turn in the given session.
func (d *Desk) Ask(ctx context.Context, sessionID, utterance string) (*orchestrator.Bundle, error) {
	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return d.orch.Respond(ctx, sess, utterance), nil
}

// History returns the most recent max turns of a session. A non-positive max
// returns the full record.
func (d *Desk) History(sessionID string, max int) ([]memory.Turn, error) {
	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Memory.History(max), nil
}

// Reset clears a session's conversation memory.
func (d *Desk) Reset(sessionID string) error {
	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	sess.Lock()
	defer sess.Unlock()
	sess.Memory.Reset()
	d.logger.Info("ragdesk.session.reset", "session_id", sessionID)
	return nil
}

// SetThreshold overrides the similarity threshold for one session.
func (d *Desk) SetThreshold(sessionID string, t float64) error {
	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if err := sess.SetThreshold(t); err != nil {
		return err
	}
	d.logger.Info("ragdesk.session.threshold", "session_id", sessionID, "threshold", t)
	return nil
}

// RelevantArticles returns up to k distinct articles relevant to query,
// best match first.
func (d *Desk) RelevantArticles(ctx context.Context, query string, k int) ([]ArticlePreview, error) {
	if k <= 0 {
		k = d.cfg.Retrieval.TopK
	}
	results, err := d.orch.Retrieve(ctx, query, d.cfg.Retrieval.SimilarityThreshold(), k)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(results))
	out := make([]ArticlePreview, 0, len(results))
	for _, r := range results {
		if _, dup := seen[r.Chunk.ArticleID]; dup {
			continue
		}
		seen[r.Chunk.ArticleID] = struct{}{}
		out = append(out, ArticlePreview{
			ID:       r.Chunk.ArticleID,
			Title:    r.Chunk.Title,
			Category: r.Chunk.Category,
			Score:    r.Score,
			Preview:  preview(r.Chunk.Text),
		})
	}
	return out, nil
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= previewLength {
		return text
	}
	return string(r[:previewLength]) + "..."
}

// RebuildIndex rebuilds the index from the corpus, persists it and publishes
// it. The served index is untouched when the build fails.
func (d *Desk) RebuildIndex(ctx context.Context) (IndexInfo, error) {
	if err := d.watcher.Rebuild(ctx); err != nil {
		return IndexInfo{}, err
	}
	info, _ := d.Index()
	return info, nil
}

// Index describes the served index. ok is false before the first publish.
func (d *Desk) Index() (info IndexInfo, ok bool) {
	s := d.holder.Load()
	if s == nil {
		return IndexInfo{}, false
	}
	return IndexInfo{BuildID: s.BuildID(), BuiltAt: s.BuiltAt(), Chunks: s.Len(), Dimensions: s.Dimensions()}, true
}

// WatchCorpus rebuilds the index whenever the corpus file changes until ctx
// is cancelled or the desk is closed.
func (d *Desk) WatchCorpus(ctx context.Context) error {
	return d.watcher.Start(ctx)
}

// Ticket looks up a support ticket by id.
func (d *Desk) Ticket(ctx context.Context, id string) (*ticket.Ticket, error) {
	return d.tickets.Get(ctx, id)
}

// Tickets lists all support tickets in creation order.
func (d *Desk) Tickets(ctx context.Context) ([]*ticket.Ticket, error) {
	return d.tickets.List(ctx)
}

// Actions lists the enabled actions.
func (d *Desk) Actions() []action.Definition { return d.registry.Definitions() }

// Close stops the watcher and releases storage backends.
func (d *Desk) Close() error {
	if d.watcher != nil {
		d.watcher.Stop()
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	if z, ok := d.logger.(*logging.ZapAdapter); ok {
		_ = z.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %w", errors.Join(errs...))
	}
	return nil
}
