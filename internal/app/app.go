// Package app wires the calling agent's subsystems into a running assistant.
//
// The App struct owns the full lifecycle: New builds the knowledge store,
// retrieval, completion client, persistence and router for one domain; Run
// serves the ops endpoints until the context ends; Shutdown tears everything
// down in order. Conversations are driven through [App.StartCall].
//
// For testing, inject in-memory stores via functional options
// (WithStateStore, WithLedger, ...). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/harjas-romana/calling-agent/internal/completion"
	"github.com/harjas-romana/calling-agent/internal/config"
	"github.com/harjas-romana/calling-agent/internal/domain"
	"github.com/harjas-romana/calling-agent/internal/domain/restaurant"
	"github.com/harjas-romana/calling-agent/internal/domain/travel"
	"github.com/harjas-romana/calling-agent/internal/health"
	"github.com/harjas-romana/calling-agent/internal/knowledge"
	"github.com/harjas-romana/calling-agent/internal/observe"
	"github.com/harjas-romana/calling-agent/internal/resilience"
	"github.com/harjas-romana/calling-agent/internal/retrieval"
	"github.com/harjas-romana/calling-agent/internal/router"
	"github.com/harjas-romana/calling-agent/internal/transcript"
	"github.com/harjas-romana/calling-agent/internal/transcript/phonetic"
	"github.com/harjas-romana/calling-agent/pkg/memory"
	"github.com/harjas-romana/calling-agent/pkg/memory/postgres"
	"github.com/harjas-romana/calling-agent/pkg/provider/embeddings"
	"github.com/harjas-romana/calling-agent/pkg/provider/llm"
	"github.com/harjas-romana/calling-agent/pkg/provider/stt"
	"github.com/harjas-romana/calling-agent/pkg/provider/tts"
)

// Domains maps an assistant.domain value to its factory.
var Domains = map[string]func() domain.Factory{
	restaurant.Name: restaurant.Factory,
	travel.Name:     travel.Factory,
}

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry;
// STT and TTS may already be fallback groups.
type Providers struct {
	LLM        llm.Provider
	STT        stt.Provider
	TTS        tts.Provider
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes for one assistant domain.
type App struct {
	// cfgMu guards cfg once New returns; Reload swaps it.
	cfgMu     sync.RWMutex
	cfg       *config.Config
	providers *Providers

	// Subsystems, initialised in New and torn down in Shutdown.
	domain      *domain.Domain
	knowledge   *knowledge.Store
	retriever   *retrieval.Retriever
	breaker     *resilience.LLMBreaker
	completion  *completion.Client
	router      *router.Router
	corrector   *transcript.Corrector
	states      router.StateStore
	ledger      memory.Ledger
	transcripts memory.TranscriptStore
	vectors     memory.VectorCache
	metrics     *observe.Metrics
	promReg     *prometheus.Registry
	now         func() time.Time
	checkers    []health.Checker
	calls       calls

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStateStore injects a conversation state store instead of creating one
// from config.
func WithStateStore(s router.StateStore) Option {
	return func(a *App) { a.states = s }
}

// WithLedger injects a transaction ledger instead of creating one from config.
func WithLedger(l memory.Ledger) Option {
	return func(a *App) { a.ledger = l }
}

// WithTranscripts injects a transcript store instead of creating one from config.
func WithTranscripts(s memory.TranscriptStore) Option {
	return func(a *App) { a.transcripts = s }
}

// WithVectorCache injects the embedding cache used by the embedding scorer.
func WithVectorCache(c memory.VectorCache) Option {
	return func(a *App) { a.vectors = c }
}

// WithMetrics records on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithPrometheusRegistry serves /metrics from reg instead of the default
// gatherer.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.promReg = reg }
}

// WithClock overrides the clock used for dialogue dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
//
// New performs all initialisation synchronously: knowledge loading, store
// connections, retrieval and completion setup, router and transcript
// correction.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		now:       time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Domain + knowledge ────────────────────────────────────────────
	if err := a.initDomain(); err != nil {
		return nil, fmt.Errorf("app: init domain: %w", err)
	}

	// ── 2. Persistence ───────────────────────────────────────────────────
	if err := a.initMemory(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("app: init memory: %w", err)
	}

	// ── 3. Conversation state ────────────────────────────────────────────
	if err := a.initState(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("app: init state: %w", err)
	}

	// ── 4. Retrieval + completion ────────────────────────────────────────
	a.initRetrieval()
	a.initCompletion()

	// ── 5. Router ────────────────────────────────────────────────────────
	if err := a.initRouter(); err != nil {
		a.close()
		return nil, fmt.Errorf("app: init router: %w", err)
	}

	// ── 6. Transcript correction ─────────────────────────────────────────
	if cfg.Transcript.PhoneticCorrection {
		var popts []phonetic.Option
		if t := cfg.Transcript.PhoneticThreshold; t > 0 {
			popts = append(popts, phonetic.WithPhoneticThreshold(t))
		}
		a.corrector = transcript.NewCorrector(a.domain.Vocabulary,
			transcript.WithMatcher(phonetic.New(popts...)))
	}

	slog.Info("assistant ready",
		"domain", a.domain.Name,
		"business", a.domain.Business,
		"scorer", cfg.Assistant.Scorer,
		"state", cfg.State.Backend,
	)
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initDomain builds the knowledge store and the domain reading from it.
func (a *App) initDomain() error {
	factory, ok := Domains[a.cfg.Assistant.Domain]
	if !ok {
		return fmt.Errorf("unknown domain %q", a.cfg.Assistant.Domain)
	}
	f := factory()
	a.knowledge = knowledge.New(f.RequiredKey, f.Knowledge(), knowledge.WithClock(a.now))
	if path := a.cfg.Assistant.KnowledgeFile; path != "" {
		if err := a.knowledge.Restore(path); err != nil {
			return fmt.Errorf("load knowledge file %q: %w", path, err)
		}
	}
	a.domain = f.New(a.knowledge)
	return a.domain.Validate()
}

// initMemory opens the PostgreSQL store when configured and fills every
// store that was not injected. Without a DSN everything stays in memory.
func (a *App) initMemory(ctx context.Context) error {
	if dsn := a.cfg.Memory.PostgresDSN; dsn != "" && (a.ledger == nil || a.transcripts == nil || a.vectors == nil) {
		store, err := postgres.NewStore(ctx, dsn, a.cfg.Memory.EmbeddingDimensions)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		a.checkers = append(a.checkers, health.Checker{Name: "postgres", Check: store.Ping})
		if a.ledger == nil {
			a.ledger = store
		}
		if a.transcripts == nil {
			a.transcripts = store
		}
		if a.vectors == nil {
			a.vectors = store
		}
		slog.Info("postgres persistence enabled")
	}

	if a.ledger == nil {
		a.ledger = &memory.MemLedger{}
	}
	if a.transcripts == nil {
		a.transcripts = &memory.MemTranscripts{}
	}
	if a.vectors == nil {
		a.vectors = &memory.MemVectorCache{}
	}
	return nil
}

// initState connects the conversation state backend.
func (a *App) initState(ctx context.Context) error {
	if a.states != nil {
		return nil
	}
	switch a.cfg.State.Backend {
	case config.StateRedis:
		rs, err := router.DialRedis(ctx, a.cfg.State.RedisURL, a.cfg.State.TTL)
		if err != nil {
			return err
		}
		a.states = rs
		a.closers = append(a.closers, rs.Close)
		a.checkers = append(a.checkers, health.Checker{Name: "state", Check: rs.Ping})
		slog.Info("conversation state in redis", "ttl", a.cfg.State.TTL)
	default:
		a.states = router.NewMemStore()
	}
	return nil
}

func (a *App) initRetrieval() {
	var scorer retrieval.Scorer = retrieval.Jaccard{}
	if a.cfg.Assistant.Scorer == config.ScorerEmbedding && a.providers.Embeddings != nil {
		scorer = retrieval.NewEmbeddingScorer(a.providers.Embeddings, a.vectors)
	}
	a.retriever = retrieval.New(a.knowledge,
		retrieval.WithScorer(scorer),
		retrieval.WithSections(a.domain.Sections...),
	)
}

// initCompletion puts a circuit breaker in front of the model. Without a
// configured model every open question gets the fallback text.
func (a *App) initCompletion() {
	var provider llm.Provider = unavailableLLM{}
	name := "none"
	if a.providers.LLM != nil {
		a.breaker = resilience.NewLLMBreaker(a.providers.LLM, resilience.CircuitBreakerConfig{
			Name:         "llm",
			MaxFailures:  a.cfg.Completion.BreakerFailures,
			ResetTimeout: a.cfg.Completion.BreakerReset,
		})
		provider = a.breaker
		name = a.cfg.Providers.LLM.Name
	}
	a.checkers = append(a.checkers, health.Checker{Name: "llm", Check: a.checkLLM})
	a.completion = completion.New(provider, a.completionConfig(a.cfg),
		completion.WithMetrics(a.metrics),
		completion.WithClock(a.now),
		completion.WithProviderName(name),
	)
}

// completionConfig merges the domain defaults with cfg.
func (a *App) completionConfig(cfg *config.Config) completion.Config {
	maxTokens := a.domain.MaxTokens
	if cfg.Completion.MaxTokens > 0 {
		maxTokens = cfg.Completion.MaxTokens
	}
	return completion.Config{
		SystemPrompt: a.domain.SystemPrompt,
		Memory:       cfg.Assistant.ConversationMemory,
		Temperature:  cfg.Completion.Temperature,
		MaxTokens:    maxTokens,
		Timeout:      cfg.Completion.Timeout,
	}
}

func (a *App) checkLLM(context.Context) error {
	if a.providers.LLM == nil {
		return errors.New("no llm provider configured")
	}
	if a.breaker != nil && a.breaker.State() == resilience.StateOpen {
		return errors.New("llm circuit breaker open")
	}
	return nil
}

func (a *App) initRouter() error {
	opts := []router.Option{
		router.WithStateStore(a.states),
		router.WithLedger(a.ledger),
		router.WithTranscripts(a.transcripts),
		router.WithThreshold(a.cfg.Assistant.Threshold),
		router.WithMetrics(a.metrics),
		router.WithClock(a.now),
	}
	if a.providers.TTS != nil {
		v := a.cfg.Assistant.Voice
		opts = append(opts, router.WithSpeech(a.providers.TTS, tts.Voice{
			ID:              v.ID,
			Provider:        a.cfg.Providers.TTS.Name,
			Stability:       v.Stability,
			SimilarityBoost: v.SimilarityBoost,
		}))
	}
	r, err := router.New(a.domain, a.retriever, a.completion, opts...)
	if err != nil {
		return err
	}
	a.router = r
	return nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Domain returns the assistant's domain.
func (a *App) Domain() *domain.Domain { return a.domain }

// Knowledge returns the live knowledge store.
func (a *App) Knowledge() *knowledge.Store { return a.knowledge }

// Router returns the conversation router.
func (a *App) Router() *router.Router { return a.router }

// Ledger returns the transaction ledger.
func (a *App) Ledger() memory.Ledger { return a.ledger }

// Transcripts returns the transcript store.
func (a *App) Transcripts() memory.TranscriptStore { return a.transcripts }

// Checkers returns the readiness checks of the configured backends.
func (a *App) Checkers() []health.Checker {
	return append([]health.Checker(nil), a.checkers...)
}

// Backup writes the knowledge base to the configured backup directory.
func (a *App) Backup() (string, error) {
	return a.knowledge.Backup(a.Config().Assistant.BackupDir)
}

// Config returns the active configuration. Callers must not modify it.
func (a *App) Config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// Reload applies the hot-reloadable parts of next and returns the diff
// against the active config. Sections that need a restart are logged and
// ignored.
func (a *App) Reload(next *config.Config) config.ConfigDiff {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()

	d := config.Diff(a.cfg, next)
	if d.ThresholdChanged {
		a.router.SetThreshold(d.NewThreshold)
		slog.Info("retrieval threshold updated", "threshold", d.NewThreshold)
	}
	if d.CompletionChanged {
		a.completion.SetConfig(a.completionConfig(next))
		slog.Info("completion settings updated",
			"temperature", next.Completion.Temperature,
			"memory", next.Assistant.ConversationMemory,
		)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "sections", d.RestartRequired)
	}
	a.cfg = next
	return d
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves /healthz, /readyz and /metrics on server.listen_addr and blocks
// until ctx is cancelled. With listen_addr "-" it only waits for ctx.
func (a *App) Run(ctx context.Context) error {
	addr := a.Config().Server.ListenAddr
	if addr == "" || addr == "-" {
		<-ctx.Done()
		return ctx.Err()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("ops server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Handler returns the ops HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	health.New(a.domain.Name, a.checkers...).Register(mux)
	mux.Handle("GET /metrics", observe.MetricsHandler(a.promReg))
	return observe.Middleware(a.metrics)(mux)
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers), "active_calls", len(a.calls.ids()))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// close runs the closers registered so far after a failed New.
func (a *App) close() {
	for _, closer := range a.closers {
		_ = closer()
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// unavailableLLM stands in when no model is configured.
type unavailableLLM struct{}

func (unavailableLLM) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errors.New("app: no llm provider configured")
}

func (unavailableLLM) Capabilities() llm.ModelCapabilities { return llm.ModelCapabilities{} }
