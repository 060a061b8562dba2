// Package router turns one caller utterance into one reply.
//
// Each turn is dispatched by fixed precedence: an active dialogue session
// gets the utterance first; otherwise the domain's intent table is scanned in
// order and the first match answers with a fixed reply or opens a session;
// anything else is answered by retrieval plus the completion backend.
//
// Turns of the same conversation are serialized. Different conversations run
// concurrently.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/harjas-romana/calling-agent/internal/completion"
	"github.com/harjas-romana/calling-agent/internal/dialogue"
	"github.com/harjas-romana/calling-agent/internal/domain"
	"github.com/harjas-romana/calling-agent/internal/observe"
	"github.com/harjas-romana/calling-agent/internal/retrieval"
	"github.com/harjas-romana/calling-agent/pkg/memory"
	"github.com/harjas-romana/calling-agent/pkg/provider/tts"
)

// ErrorReply is returned when a turn fails unexpectedly.
const ErrorReply = "I'm sorry, I encountered an error processing your request. Could you please try again?"

// ErrorIntent is reported for turns that ended in [ErrorReply].
const ErrorIntent = "error"

// Retriever finds knowledge relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, threshold float64) string
}

// Completer generates free-form answers.
type Completer interface {
	Complete(ctx context.Context, query string, history []completion.Turn, retrieved string) (string, []completion.Turn)
	Config() completion.Config
}

// Result is the outcome of one routed turn.
type Result struct {
	Reply string
	// Audio is the synthesized reply, nil when no TTS provider is set or
	// synthesis failed.
	Audio []byte
	// Intent names the handler: an intent name, a session kind,
	// [domain.RAGIntent] or [ErrorIntent].
	Intent string
	// History is the conversation history after the turn.
	History []completion.Turn
}

// Option configures a [Router].
type Option func(*Router)

// WithStateStore sets where conversation state lives. Default [MemStore].
func WithStateStore(s StateStore) Option {
	return func(r *Router) { r.states = s }
}

// WithLedger records completed transactions in l.
func WithLedger(l memory.Ledger) Option {
	return func(r *Router) { r.ledger = l }
}

// WithTranscripts appends every turn to s.
func WithTranscripts(s memory.TranscriptStore) Option {
	return func(r *Router) { r.transcripts = s }
}

// WithSpeech synthesizes every reply with p using voice.
func WithSpeech(p tts.Provider, voice tts.Voice) Option {
	return func(r *Router) {
		r.speech = p
		r.voice = voice
	}
}

// WithThreshold sets the retrieval relevance threshold. Default
// [retrieval.DefaultThreshold].
func WithThreshold(t float64) Option {
	return func(r *Router) { r.threshold = t }
}

// WithMetrics records on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithClock overrides the clock used for session dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// Router dispatches turns for one [domain.Domain]. All methods are safe for
// concurrent use.
type Router struct {
	domain    *domain.Domain
	engine    *dialogue.Engine
	enhancer  *retrieval.Enhancer
	retriever Retriever
	completer Completer

	states      StateStore
	ledger      memory.Ledger
	transcripts memory.TranscriptStore
	speech      tts.Provider
	voice       tts.Voice
	metrics     *observe.Metrics
	now         func() time.Time

	settingsMu sync.RWMutex
	threshold  float64

	locksMu sync.Mutex
	locks   map[string]*convLock
}

// convLock serializes the turns of one conversation. refs counts the
// goroutines holding or waiting for it so idle entries can be dropped.
type convLock struct {
	mu   sync.Mutex
	refs int
}

// New returns a Router for d.
func New(d *domain.Domain, retriever Retriever, completer Completer, opts ...Option) (*Router, error) {
	if d == nil {
		return nil, errors.New("router: nil domain")
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	if retriever == nil || completer == nil {
		return nil, errors.New("router: retriever and completer are required")
	}
	eng, err := dialogue.NewEngine(d.Flows...)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := &Router{
		domain:    d,
		engine:    eng,
		enhancer:  retrieval.NewEnhancer(d.Synonyms),
		retriever: retriever,
		completer: completer,
		states:    NewMemStore(),
		metrics:   observe.DefaultMetrics(),
		now:       time.Now,
		threshold: retrieval.DefaultThreshold,
		locks:     make(map[string]*convLock),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Domain returns the routed domain.
func (r *Router) Domain() *domain.Domain { return r.domain }

// Threshold returns the current retrieval threshold.
func (r *Router) Threshold() float64 {
	r.settingsMu.RLock()
	defer r.settingsMu.RUnlock()
	return r.threshold
}

// SetThreshold changes the retrieval threshold for subsequent turns.
func (r *Router) SetThreshold(t float64) {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()
	r.threshold = t
}

func (r *Router) lock(id string) func() {
	r.locksMu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &convLock{}
		r.locks[id] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, id)
		}
		r.locksMu.Unlock()
	}
}

// Utterance is one caller turn as heard.
type Utterance struct {
	// Text is what gets routed.
	Text string
	// RawText is the transcript before correction, empty when Text was not
	// corrected. It is only logged to the transcript store.
	RawText string
}

// Route answers query within conversation conversationID. Failures inside
// the turn are logged and answered with [ErrorReply]; the only error
// returned is ctx's when it is already done.
func (r *Router) Route(ctx context.Context, conversationID, query string) (Result, error) {
	return r.RouteUtterance(ctx, conversationID, Utterance{Text: query})
}

// RouteUtterance is [Router.Route] for a corrected speech transcript.
func (r *Router) RouteUtterance(ctx context.Context, conversationID string, u Utterance) (res Result, err error) {
	query := u.Text
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("router: %w", err)
	}

	ctx, span := observe.StartSpan(ctx, "router.Route")
	defer span.End()
	log := observe.Logger(ctx).With("conversation", conversationID, "domain", r.domain.Name)

	unlock := r.lock(conversationID)
	defer unlock()
	r.metrics.ActiveConversations.Add(ctx, 1)
	defer r.metrics.ActiveConversations.Add(ctx, -1)

	var history []completion.Turn
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			log.Error("router: panic while routing", "panic", p, "stack", string(debug.Stack()))
			res = r.failed(ctx, history)
			err = nil
		}
		span.SetAttributes(attribute.String("router.intent", res.Intent))
		r.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
		r.metrics.RecordTurn(ctx, r.domain.Name, res.Intent)
	}()

	st, loadErr := r.states.Load(ctx, conversationID)
	if loadErr != nil {
		log.Error("router: load state failed", "err", loadErr)
		span.RecordError(loadErr)
		return r.failed(ctx, nil), nil
	}
	history = st.History

	now := r.now()
	reply, intent, next, turnErr := r.dispatch(ctx, conversationID, query, st, now)
	if turnErr != nil {
		log.Error("router: turn failed", "err", turnErr)
		span.RecordError(turnErr)
		return r.failed(ctx, st.History), nil
	}

	if err := r.states.Save(ctx, conversationID, next); err != nil {
		log.Error("router: save state failed", "err", err)
		span.RecordError(err)
		return r.failed(ctx, st.History), nil
	}
	log.Debug("turn routed", "intent", intent)

	r.appendTranscript(ctx, conversationID, u, reply, intent, now)
	return Result{
		Reply:   reply,
		Audio:   r.synthesize(ctx, reply),
		Intent:  intent,
		History: next.History,
	}, nil
}

// dispatch applies the precedence rules and returns the reply and the new
// state. st is not modified.
func (r *Router) dispatch(ctx context.Context, conversationID, query string, st State, now time.Time) (string, string, State, error) {
	next := st.Clone()
	memorySize := r.completer.Config().Memory

	if st.Session != nil && st.Session.Active() {
		sess, reply, err := r.engine.Handle(*st.Session, query, now)
		if err != nil {
			return "", "", st, err
		}
		intent := string(sess.Kind)
		if sess.Completed {
			r.complete(ctx, conversationID, sess, now)
			next.Session = nil
		} else {
			next.Session = &sess
		}
		next.History = appendTurns(next.History, query, reply, now, memorySize)
		return reply, intent, next, nil
	}

	if in, ok := r.domain.Match(query); ok {
		if kind, starts := r.domain.Starts[in.Name]; starts {
			sess, reply, err := r.engine.Start(kind, query, now)
			if err != nil {
				return "", "", st, err
			}
			r.metrics.RecordSessionStarted(ctx, r.domain.Name, string(kind))
			next.Session = &sess
			next.History = appendTurns(next.History, query, reply, now, memorySize)
			return reply, in.Name, next, nil
		}
		handler := r.domain.Fixed[in.Name]
		reply := handler(domain.Request{Text: query, Lower: strings.ToLower(query), Now: now})
		next.History = appendTurns(next.History, query, reply, now, memorySize)
		return reply, in.Name, next, nil
	}

	enhanced := r.enhancer.Enhance(query)
	retrieved := r.retriever.Retrieve(ctx, enhanced, r.Threshold())
	reply, history := r.completer.Complete(ctx, query, next.History, retrieved)
	next.History = history
	return reply, domain.RAGIntent, next, nil
}

// complete records a finished session. Ledger failures are logged only; the
// caller has already been told the transaction went through.
func (r *Router) complete(ctx context.Context, conversationID string, sess dialogue.Session, now time.Time) {
	r.metrics.RecordSessionCompleted(ctx, r.domain.Name, string(sess.Kind))
	log := observe.Logger(ctx)
	log.Info("transaction completed",
		"conversation", conversationID,
		"domain", r.domain.Name,
		"kind", string(sess.Kind),
		"session", sess.ID,
	)
	if r.ledger == nil {
		return
	}
	tx := memory.Transaction{
		ID:             sess.ID,
		ConversationID: conversationID,
		Domain:         r.domain.Name,
		Kind:           string(sess.Kind),
		Reference:      sess.Data["reference"],
		Data:           sess.Data.Clone(),
		CreatedAt:      now,
	}
	if err := r.ledger.Record(ctx, tx); err != nil {
		log.Error("router: record transaction failed", "conversation", conversationID, "err", err)
	}
}

func appendTurns(history []completion.Turn, query, reply string, now time.Time, memorySize int) []completion.Turn {
	history = append(history,
		completion.Turn{Role: completion.RoleUser, Content: query, Timestamp: now},
		completion.Turn{Role: completion.RoleAssistant, Content: reply, Timestamp: now},
	)
	return completion.Trim(history, 2*memorySize)
}

func (r *Router) failed(ctx context.Context, history []completion.Turn) Result {
	return Result{
		Reply:   ErrorReply,
		Audio:   r.synthesize(ctx, ErrorReply),
		Intent:  ErrorIntent,
		History: history,
	}
}

// Speak synthesizes text with the configured voice. It returns nil when no
// TTS provider is set or synthesis fails.
func (r *Router) Speak(ctx context.Context, text string) []byte {
	return r.synthesize(ctx, text)
}

// synthesize returns nil on any failure, including a panicking provider.
func (r *Router) synthesize(ctx context.Context, text string) (audio []byte) {
	if r.speech == nil || text == "" {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			observe.Logger(ctx).Error("router: tts panicked", "panic", p)
			audio = nil
		}
	}()

	start := time.Now()
	audio, err := r.speech.Synthesize(ctx, text, r.voice)
	r.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		observe.Logger(ctx).Warn("router: speech synthesis failed", "err", err)
		return nil
	}
	return audio
}

func (r *Router) appendTranscript(ctx context.Context, conversationID string, u Utterance, reply, intent string, now time.Time) {
	if r.transcripts == nil {
		return
	}
	for _, e := range []memory.TranscriptEntry{
		{ConversationID: conversationID, Speaker: memory.SpeakerUser, Text: u.Text, RawText: u.RawText, Intent: intent, Timestamp: now},
		{ConversationID: conversationID, Speaker: memory.SpeakerAssistant, Text: reply, Intent: intent, Timestamp: now},
	} {
		if err := r.transcripts.Append(ctx, e); err != nil {
			observe.Logger(ctx).Warn("router: append transcript failed", "conversation", conversationID, "err", err)
			return
		}
	}
}

// End forgets conversationID and returns the farewell line.
func (r *Router) End(ctx context.Context, conversationID string) (string, error) {
	unlock := r.lock(conversationID)
	defer unlock()
	if err := r.states.Delete(ctx, conversationID); err != nil {
		return Farewell(r.domain.Business), fmt.Errorf("router: end conversation: %w", err)
	}
	return Farewell(r.domain.Business), nil
}

// State returns a copy of the stored state of conversationID.
func (r *Router) State(ctx context.Context, conversationID string) (State, error) {
	return r.states.Load(ctx, conversationID)
}
