package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harjas-romana/calling-agent/internal/router"
	"github.com/harjas-romana/calling-agent/internal/transcript"
	"github.com/harjas-romana/calling-agent/pkg/provider/stt"
)

// Spoken re-prompts for failed speech recognition.
const (
	NoSpeechReply       = "I'm still listening... Please speak when ready."
	UnintelligibleReply = "I didn't catch that clearly. Could you please repeat?"
	UnavailableReply    = "Sorry, speech recognition is unavailable right now. Please type your request instead."
)

// ErrNoSTT is returned by [App.Listen] when no STT provider is configured.
var ErrNoSTT = errors.New("app: no stt provider configured")

// ErrUnknownCall is returned for a call ID that was never started or has ended.
var ErrUnknownCall = errors.New("app: unknown call")

// CallInfo describes one active call.
type CallInfo struct {
	ID        string
	StartedAt time.Time
	Turns     int
}

// Turn is the outcome of one caller turn.
type Turn struct {
	router.Result

	// Transcript is what was routed. For spoken turns it is the corrected
	// recognition result.
	Transcript string

	// Corrections lists the vocabulary fixes applied to the transcript.
	Corrections []transcript.Correction

	// End is set when the caller said goodbye. Reply then holds the farewell
	// and the call is over.
	End bool
}

// calls tracks active calls by ID.
type calls struct {
	mu     sync.Mutex
	active map[string]*CallInfo
}

func (c *calls) add(info *CallInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		c.active = make(map[string]*CallInfo)
	}
	c.active[info.ID] = info
}

func (c *calls) turn(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.active[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCall, id)
	}
	info.Turns++
	return nil
}

func (c *calls) remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[id]
	delete(c.active, id)
	return ok
}

func (c *calls) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	return ids
}

// StartCall opens a new conversation and returns its info with the spoken
// greeting.
func (a *App) StartCall(ctx context.Context) (CallInfo, Turn) {
	info := &CallInfo{ID: uuid.NewString(), StartedAt: a.now()}
	a.calls.add(info)
	slog.Info("call started", "call", info.ID, "domain", a.domain.Name)

	greeting := router.Greeting(a.domain.Business)
	return *info, Turn{
		Result: router.Result{
			Reply:  greeting,
			Audio:  a.router.Speak(ctx, greeting),
			Intent: "greeting",
		},
	}
}

// Say routes one typed caller turn. An end-of-conversation phrase ends the
// call with the farewell.
func (a *App) Say(ctx context.Context, callID, text string) (Turn, error) {
	return a.say(ctx, callID, router.Utterance{Text: text}, nil)
}

// Listen transcribes audio, corrects the transcript against the domain
// vocabulary and routes it. Recognition failures are answered with a spoken
// re-prompt instead of an error.
func (a *App) Listen(ctx context.Context, callID string, audio stt.Audio) (Turn, error) {
	if a.providers.STT == nil {
		return Turn{}, ErrNoSTT
	}
	text, err := a.providers.STT.Transcribe(ctx, audio)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Turn{}, fmt.Errorf("app: listen: %w", ctxErr)
		}
		reply := recognitionReply(err)
		slog.Warn("speech recognition failed", "call", callID, "err", err)
		a.metrics.RecordFallback(ctx, "stt")
		return Turn{Result: router.Result{
			Reply:  reply,
			Audio:  a.router.Speak(ctx, reply),
			Intent: "reprompt",
		}}, nil
	}

	u := router.Utterance{Text: text}
	var fixes []transcript.Correction
	if a.corrector != nil {
		corrected, cs := a.corrector.Correct(text)
		if len(cs) > 0 {
			u = router.Utterance{Text: corrected, RawText: text}
			fixes = cs
		}
	}
	return a.say(ctx, callID, u, fixes)
}

func (a *App) say(ctx context.Context, callID string, u router.Utterance, fixes []transcript.Correction) (Turn, error) {
	if err := a.calls.turn(callID); err != nil {
		return Turn{}, err
	}
	if router.IsEndOfConversation(u.Text) {
		farewell, err := a.EndCall(ctx, callID)
		if err != nil {
			return Turn{}, err
		}
		return Turn{
			Result: router.Result{
				Reply:  farewell,
				Audio:  a.router.Speak(ctx, farewell),
				Intent: "farewell",
			},
			Transcript:  u.Text,
			Corrections: fixes,
			End:         true,
		}, nil
	}

	res, err := a.router.RouteUtterance(ctx, callID, u)
	if err != nil {
		return Turn{}, fmt.Errorf("app: route: %w", err)
	}
	return Turn{Result: res, Transcript: u.Text, Corrections: fixes}, nil
}

// EndCall forgets the call and returns the farewell line.
func (a *App) EndCall(ctx context.Context, callID string) (string, error) {
	if !a.calls.remove(callID) {
		return "", fmt.Errorf("%w: %s", ErrUnknownCall, callID)
	}
	farewell, err := a.router.End(ctx, callID)
	if err != nil {
		return farewell, fmt.Errorf("app: end call: %w", err)
	}
	slog.Info("call ended", "call", callID)
	return farewell, nil
}

// ActiveCalls returns the IDs of calls in progress.
func (a *App) ActiveCalls() []string { return a.calls.ids() }

func recognitionReply(err error) string {
	switch {
	case errors.Is(err, stt.ErrNoSpeech):
		return NoSpeechReply
	case errors.Is(err, stt.ErrUnintelligible):
		return UnintelligibleReply
	default:
		return UnavailableReply
	}
}
