package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/ragdesk/action"
	"github.com/hupe1980/ragdesk/config"
	"github.com/hupe1980/ragdesk/embedding"
	"github.com/hupe1980/ragdesk/logging"
	"github.com/hupe1980/ragdesk/memory"
	"github.com/hupe1980/ragdesk/model"
	"github.com/hupe1980/ragdesk/retrieval"
	"github.com/hupe1980/ragdesk/session"
)

// Options configure the orchestrator.
type Options struct {
	Embedder embedding.Embedder
	Model    model.Model
	Index    *retrieval.Holder
	Actions  *action.Registry
	Logger   logging.Logger

	// Persona opens the system prompt.
	Persona string
	// Threshold is the default similarity threshold; sessions may override it.
	Threshold float64
	// TopK bounds the number of context chunks handed to the model.
	TopK int
	// CandidateMultiplier widens the store query to TopK*CandidateMultiplier
	// before filtering.
	CandidateMultiplier int
	// HistoryWindow bounds the prior turns sent to the model. Zero sends all.
	HistoryWindow int

	EmbeddingTimeout  time.Duration
	GenerationTimeout time.Duration
	// Retries is how often a timed-out external call is repeated. It is
	// clamped to [0, config.MaxRetries].
	Retries int
}

// Source is a cited knowledge article.
type Source struct {
	ArticleID string  `json:"article_id"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	Score     float64 `json:"score"`
}

// Bundle is the result of one turn.
type Bundle struct {
	Answer  string         `json:"answer"`
	Sources []Source       `json:"sources"`
	Action  *action.Result `json:"-"`
	Outcome Outcome        `json:"outcome"`
	// Err is the per-turn failure behind a failed outcome.
	Err   error   `json:"-"`
	Trace []State `json:"trace"`
}

// Orchestrator answers user turns.
type Orchestrator struct {
	embedder embedding.Embedder
	model    model.Model
	index    *retrieval.Holder
	actions  *action.Registry
	logger   logging.Logger
	opts     Options
}

// New constructs an orchestrator. A missing collaborator or an invalid
// threshold yields a *config.ConfigurationError.
func New(optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		Logger:              logging.NoOpLogger{},
		Persona:             DefaultPersona,
		Threshold:           config.DefaultThreshold,
		TopK:                config.DefaultTopK,
		CandidateMultiplier: config.DefaultCandidateMultiplier,
		HistoryWindow:       config.DefaultHistoryWindow,
		EmbeddingTimeout:    config.DefaultEmbeddingTimeout,
		GenerationTimeout:   config.DefaultGenerationTimeout,
		Retries:             1,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var problems []string
	if opts.Embedder == nil {
		problems = append(problems, "embedder is required")
	}
	if opts.Model == nil {
		problems = append(problems, "model is required")
	}
	if opts.Index == nil {
		problems = append(problems, "index holder is required")
	}
	if opts.Actions == nil {
		problems = append(problems, "action registry is required")
	}
	if err := retrieval.ValidateThreshold(opts.Threshold); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return nil, &config.ConfigurationError{Problems: problems}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.TopK <= 0 {
		opts.TopK = config.DefaultTopK
	}
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = 1
	}
	opts.Retries = boundRetries(opts.Retries)

	return &Orchestrator{
		embedder: opts.Embedder,
		model:    opts.Model,
		index:    opts.Index,
		actions:  opts.Actions,
		logger:   opts.Logger,
		opts:     opts,
	}, nil
}

// Options returns the effective options.
func (o *Orchestrator) Options() Options { return o.opts }

// Retrieve embeds query, searches the published store and keeps at most k
// results scoring at or above threshold. A non-positive k means TopK. An empty
// slice with a nil error means nothing was relevant.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, threshold float64, k int) ([]retrieval.Result, error) {
	if k <= 0 {
		k = o.opts.TopK
	}
	vec, err := o.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := o.index.Query(ctx, vec, k*o.opts.CandidateMultiplier)
	if err != nil {
		return nil, err
	}
	kept, err := relevant(results, threshold, k)
	if errors.Is(err, retrieval.ErrNoRelevantContent) {
		return kept, nil
	}
	return kept, err
}

func (o *Orchestrator) embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := callWithRetry(ctx, o.logger, "embed", o.opts.EmbeddingTimeout, o.opts.Retries, func(ctx context.Context) error {
		v, err := o.embedder.Embed(ctx, text)
		vec = v
		return err
	})
	if err != nil {
		return nil, &retrieval.Error{Op: "embed", Err: err}
	}
	return vec, nil
}

func (o *Orchestrator) search(ctx context.Context, vec []float32) ([]retrieval.Result, error) {
	return o.index.Query(ctx, vec, o.opts.TopK*o.opts.CandidateMultiplier)
}

// relevant keeps at most k results at or above threshold. It returns
// retrieval.ErrNoRelevantContent when nothing passes.
func relevant(results []retrieval.Result, threshold float64, k int) ([]retrieval.Result, error) {
	kept, err := retrieval.Relevant(results, threshold)
	if len(kept) > k {
		kept = kept[:k]
	}
	return kept, err
}

// turn carries the state of one Respond call.
type turn struct {
	o       *Orchestrator
	sess    *session.Session
	logger  logging.Logger
	limiter *ModelLimiter
	bundle  *Bundle
}

func (t *turn) enter(s State) {
	t.bundle.Trace = append(t.bundle.Trace, s)
	t.logger.Debug("orchestrator.state", "state", string(s))
}

// Respond runs one turn for sess. Turns within a session are serialised. The
// returned bundle is never nil; failures are reported through its Outcome.
func (o *Orchestrator) Respond(ctx context.Context, sess *session.Session, utterance string) *Bundle {
	sess.Lock()
	defer sess.Unlock()

	start := time.Now()
	t := &turn{
		o:       o,
		sess:    sess,
		logger:  logging.With(o.logger, "session_id", sess.ID),
		limiter: NewModelLimiter(turnPasses...),
		bundle:  &Bundle{Sources: []Source{}},
	}

	t.enter(StateReceived)
	history := sess.Memory.History(o.opts.HistoryWindow)
	sess.Memory.AppendUser(utterance)
	t.logger.Info("orchestrator.turn.start", "history_turns", len(history))

	t.run(ctx, history, utterance)

	t.enter(StateComposing)
	if !t.bundle.Outcome.Failed() {
		t.enter(StateMemoryUpdate)
		sess.Memory.AppendAssistant(t.bundle.Answer)
	}
	t.enter(StateDone)

	t.logger.Info("orchestrator.turn.done",
		"outcome", string(t.bundle.Outcome),
		"sources", len(t.bundle.Sources),
		"action", actionName(t.bundle.Action),
		"model_calls", t.limiter.Count(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return t.bundle
}

func (t *turn) run(ctx context.Context, history []memory.Turn, utterance string) {
	o := t.o

	t.enter(StateEmbeddingQuery)
	vec, err := o.embed(ctx, utterance)
	if err != nil {
		t.logger.Error("orchestrator.embedding.failed", "error", err)
		t.fail(OutcomeRetrievalFailed, RetrievalFailedAnswer, err)
		return
	}

	t.enter(StateRetrieving)
	results, err := o.search(ctx, vec)
	if err != nil {
		t.logger.Error("orchestrator.retrieval.failed", "error", err)
		answer := RetrievalFailedAnswer
		if errors.Is(err, retrieval.ErrEmptyStore) || errors.Is(err, retrieval.ErrUninitialized) ||
			errors.Is(err, retrieval.ErrDimensionMismatch) {
			answer = KnowledgeUnavailableAnswer
		}
		t.fail(OutcomeRetrievalFailed, answer, err)
		return
	}

	t.enter(StateFiltering)
	threshold := t.sess.Threshold(o.opts.Threshold)
	chunks, err := relevant(results, threshold, o.opts.TopK)
	if errors.Is(err, retrieval.ErrNoRelevantContent) {
		t.enter(StateNoContext)
		t.bundle.Outcome = OutcomeNoRelevantContent
		t.logger.Info("orchestrator.retrieval.no_context", "candidates", len(results), "threshold", threshold)
	} else {
		t.enter(StateWithContext)
		t.bundle.Outcome = OutcomeAnswered
		t.logger.Debug("orchestrator.retrieval.context", "chunks", len(chunks), "threshold", threshold)
	}

	defs := o.actions.Definitions()
	instructions, err := renderInstructions(o.opts.Persona, chunks, defs)
	if err != nil {
		t.logger.Error("orchestrator.prompt.failed", "error", err)
		t.fail(OutcomeGenerationFailed, GenerationFailedAnswer, err)
		return
	}
	req := model.Request{
		Instructions: instructions,
		Messages:     buildMessages(history, utterance),
		Tools:        toolDefinitions(defs),
	}

	t.enter(StateGenerating)
	resp, err := t.generate(ctx, req)
	if err != nil {
		t.logger.Error("orchestrator.generation.failed", "error", err)
		t.fail(OutcomeGenerationFailed, GenerationFailedAnswer, err)
		return
	}

	call, requested := resp.ActionCall()
	if !requested {
		t.enter(StateDirectAnswer)
		t.answer(resp.Text(), chunks)
		return
	}

	t.enter(StateActionRequested)
	if n := len(resp.ActionCalls()); n > 1 {
		t.logger.Warn("orchestrator.action.extra_calls_ignored", "requested", n)
	}
	if call.ID == "" {
		call.ID = "call_" + uuid.NewString()
	}
	t.logger.Info("orchestrator.action.requested", "action", call.Name)

	t.enter(StateDispatching)
	res := o.actions.ExecuteJSON(ctx, call.Name, call.Arguments)
	t.bundle.Action = &res

	t.enter(StateRegenerating)
	assistant := model.Message{Role: model.RoleAssistant}
	if text := resp.Text(); text != "" {
		assistant.Parts = append(assistant.Parts, model.TextPart{Text: text})
	}
	assistant.Parts = append(assistant.Parts, call)
	req.Messages = append(req.Messages, assistant, model.Message{
		Role: model.RoleTool,
		Parts: []model.Part{model.ActionResultPart{
			ID:      call.ID,
			Name:    call.Name,
			Content: res.ModelContent(),
			IsError: !res.Succeeded(),
		}},
	})

	final, err := t.generate(ctx, req)
	if err != nil {
		t.logger.Error("orchestrator.regeneration.failed", "error", err, "action", call.Name)
		t.fail(OutcomeGenerationFailed, GenerationFailedAnswer+"\n\n"+actionSummary(res), err)
		return
	}

	text := final.Text()
	if next, again := final.ActionCall(); again {
		t.logger.Warn("orchestrator.action.unresolved", "action", next.Name)
		if text != "" {
			text += "\n\n"
		}
		text += unresolvedActionNote(next.Name)
	} else if text == "" {
		text = actionSummary(res)
	}
	t.answer(text, chunks)
}

// generate performs one counted generation pass.
func (t *turn) generate(ctx context.Context, req model.Request) (model.Response, error) {
	pass, err := t.limiter.Next()
	if err != nil {
		return model.Response{}, err
	}
	var resp model.Response
	err = callWithRetry(ctx, t.logger, "generate", t.o.opts.GenerationTimeout, t.o.opts.Retries, func(ctx context.Context) error {
		r, err := model.Generate(ctx, t.o.model, req)
		resp = r
		return err
	})
	if err != nil {
		return model.Response{}, err
	}
	if resp.Usage != nil {
		t.logger.Debug("orchestrator.generation.usage",
			"pass", pass,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
		)
	}
	return resp, nil
}

func (t *turn) answer(text string, chunks []retrieval.Result) {
	if len(chunks) == 0 {
		if text == "" {
			text = NoInformationAnswer
		}
		t.bundle.Answer = text
		return
	}
	t.bundle.Answer = text
	t.bundle.Sources = sources(chunks)
}

func (t *turn) fail(outcome Outcome, answer string, err error) {
	t.bundle.Outcome = outcome
	t.bundle.Answer = answer
	t.bundle.Sources = []Source{}
	t.bundle.Err = err
}

// sources cites each article once, keeping its best score and the order in
// which articles first appear.
func sources(results []retrieval.Result) []Source {
	seen := make(map[string]struct{}, len(results))
	out := make([]Source, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Chunk.ArticleID]; ok {
			continue
		}
		seen[r.Chunk.ArticleID] = struct{}{}
		out = append(out, Source{
			ArticleID: r.Chunk.ArticleID,
			Title:     r.Chunk.Title,
			Category:  r.Chunk.Category,
			Score:     r.Score,
		})
	}
	return out
}

func buildMessages(history []memory.Turn, utterance string) []model.Message {
	msgs := make([]model.Message, 0, len(history)+1)
	for _, h := range history {
		if h.Role == memory.RoleAssistant {
			msgs = append(msgs, model.AssistantText(h.Text))
		} else {
			msgs = append(msgs, model.UserText(h.Text))
		}
	}
	return append(msgs, model.UserText(utterance))
}

func toolDefinitions(defs []action.Definition) []model.ToolDefinition {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]model.ToolDefinition, len(defs))
	for i, d := range defs {
		tools[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.JSONSchema(),
			},
		}
	}
	return tools
}

func actionName(res *action.Result) string {
	if res == nil {
		return ""
	}
	return res.Action
}
