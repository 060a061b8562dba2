// Package dialogue implements the slot-filling state machine shared by every
// assistant domain.
//
// A [Flow] lists the steps of one transaction kind and the [Handler] for each
// step. The [Engine] applies one user utterance to a [Session] and returns
// the next Session: steps only move forward, a handler may re-prompt the same
// step, and a restart returns to the first step with all collected data
// discarded.
package dialogue

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownKind is returned for a session kind with no registered flow.
	ErrUnknownKind = errors.New("dialogue: unknown session kind")

	// ErrNotActive is returned by [Engine.Handle] for a completed session or
	// one without a current step.
	ErrNotActive = errors.New("dialogue: session is not active")
)

// Action tells the engine how to move after a step handler ran.
type Action uint8

const (
	// Stay keeps the current step (re-prompt or loop). Outcome.Data, when
	// set, still replaces the session data.
	Stay Action = iota
	// Advance moves to Outcome.Next, or to the following step when Next is
	// StepNone.
	Advance
	// Restart returns to the first step and clears all data.
	Restart
	// Complete finishes the session.
	Complete
)

// Input is what a step handler sees for one turn.
type Input struct {
	// Text is the utterance as received.
	Text string
	// Lower is Text lower-cased and trimmed.
	Lower string
	// Data is a private copy of the session data; handlers may modify it and
	// return it in the Outcome.
	Data Data
	// Now is the turn's reference time.
	Now time.Time
}

// NewInput builds the Input for text.
func NewInput(text string, data Data, now time.Time) Input {
	return Input{
		Text:  strings.TrimSpace(text),
		Lower: strings.ToLower(strings.TrimSpace(text)),
		Data:  data.Clone(),
		Now:   now,
	}
}

// Outcome is a step handler's decision.
type Outcome struct {
	Reply  string
	Action Action
	// Next optionally names the step to advance to. It must come after the
	// current step in the flow.
	Next Step
	// Data replaces the session data when non-nil (ignored on Restart).
	Data Data
}

// Reprompt answers without moving.
func Reprompt(reply string) Outcome {
	return Outcome{Reply: reply, Action: Stay}
}

// Handler processes one utterance at one step.
type Handler func(in Input) Outcome

// Flow describes one transaction kind.
type Flow struct {
	Kind Kind
	// Steps is the strict order of the flow. Steps[0] is where sessions start
	// and restart.
	Steps []Step
	// Start produces the opening prompt and any data known up front.
	Start func(in Input) (string, Data)
	// Handlers maps every step to its handler.
	Handlers map[Step]Handler
}

// Validate checks that the flow is well formed.
func (f Flow) Validate() error {
	var errs []error
	if f.Kind == "" {
		errs = append(errs, errors.New("kind is empty"))
	}
	if len(f.Steps) == 0 {
		errs = append(errs, errors.New("no steps"))
	}
	if f.Start == nil {
		errs = append(errs, errors.New("no start function"))
	}
	seen := make(map[Step]bool, len(f.Steps))
	for _, s := range f.Steps {
		if !s.Valid() {
			errs = append(errs, fmt.Errorf("invalid step %d", uint8(s)))
			continue
		}
		if seen[s] {
			errs = append(errs, fmt.Errorf("step %s listed twice", s))
		}
		seen[s] = true
		if f.Handlers[s] == nil {
			errs = append(errs, fmt.Errorf("step %s has no handler", s))
		}
	}
	for s := range f.Handlers {
		if !seen[s] {
			errs = append(errs, fmt.Errorf("handler for step %s which is not in the flow", s))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("dialogue: flow %q: %w", f.Kind, err)
	}
	return nil
}

func (f Flow) index(s Step) int {
	return slices.Index(f.Steps, s)
}

// Engine runs registered flows. It holds no per-conversation state and is
// safe for concurrent use.
type Engine struct {
	mu    sync.RWMutex
	flows map[Kind]Flow
	newID func() string
}

// NewEngine returns an Engine with flows registered.
func NewEngine(flows ...Flow) (*Engine, error) {
	e := &Engine{flows: make(map[Kind]Flow), newID: uuid.NewString}
	for _, f := range flows {
		if err := e.Register(f); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Register adds or replaces the flow for f.Kind.
func (e *Engine) Register(f Flow) error {
	if err := f.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flows[f.Kind] = f
	return nil
}

// Kinds returns the registered kinds in sorted order.
func (e *Engine) Kinds() []Kind {
	e.mu.RLock()
	defer e.mu.RUnlock()
	kinds := make([]Kind, 0, len(e.flows))
	for k := range e.flows {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

func (e *Engine) flow(kind Kind) (Flow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f, ok := e.flows[kind]
	if !ok {
		return Flow{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return f, nil
}

// Start opens a new session of kind at its first step.
func (e *Engine) Start(kind Kind, text string, now time.Time) (Session, string, error) {
	f, err := e.flow(kind)
	if err != nil {
		return Session{}, "", err
	}
	reply, data := f.Start(NewInput(text, nil, now))
	return Session{
		ID:        e.newID(),
		Kind:      kind,
		Step:      f.Steps[0],
		Data:      data.Clone(),
		StartedAt: now,
	}, reply, nil
}

// Handle applies text to sess and returns the resulting session and reply.
// sess itself is left untouched.
func (e *Engine) Handle(sess Session, text string, now time.Time) (Session, string, error) {
	if !sess.Active() {
		return sess, "", ErrNotActive
	}
	f, err := e.flow(sess.Kind)
	if err != nil {
		return sess, "", err
	}
	cur := f.index(sess.Step)
	if cur < 0 {
		return sess, "", fmt.Errorf("dialogue: step %s is not part of flow %q", sess.Step, sess.Kind)
	}

	out := f.Handlers[sess.Step](NewInput(text, sess.Data, now))

	next := sess.Clone()
	if out.Data != nil && out.Action != Restart {
		next.Data = out.Data.Clone()
	}

	switch out.Action {
	case Stay:
	case Advance:
		to := cur + 1
		if out.Next != StepNone {
			to = f.index(out.Next)
			if to <= cur {
				return sess, "", fmt.Errorf("dialogue: flow %q cannot move from %s back to %s", sess.Kind, sess.Step, out.Next)
			}
		}
		if to >= len(f.Steps) {
			next.Completed = true
			break
		}
		next.Step = f.Steps[to]
	case Restart:
		next.Step = f.Steps[0]
		next.Data = Data{}
	case Complete:
		next.Completed = true
	default:
		return sess, "", fmt.Errorf("dialogue: unknown action %d", out.Action)
	}
	return next, out.Reply, nil
}
