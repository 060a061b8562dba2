package completion_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/harjas-romana/calling-agent/internal/completion"
	"github.com/harjas-romana/calling-agent/internal/observe"
	"github.com/harjas-romana/calling-agent/internal/resilience"
	"github.com/harjas-romana/calling-agent/pkg/provider/llm"
	llmmock "github.com/harjas-romana/calling-agent/pkg/provider/llm/mock"
)

var fixedNow = time.Date(2025, 5, 14, 12, 0, 0, 0, time.UTC)

func newClient(t *testing.T, p llm.Provider, cfg completion.Config) (*completion.Client, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	c := completion.New(p, cfg,
		completion.WithMetrics(m),
		completion.WithClock(func() time.Time { return fixedNow }),
	)
	return c, reader
}

func turns(n int) []completion.Turn {
	out := make([]completion.Turn, 0, n)
	for i := range n {
		role := completion.RoleUser
		if i%2 == 1 {
			role = completion.RoleAssistant
		}
		out = append(out, completion.Turn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	return out
}

func fallbackCount(t *testing.T, reader *sdkmetric.ManualReader, reason string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "callagent.completion.fallbacks" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				if v, ok := dp.Attributes.Value("reason"); ok && v.AsString() == reason {
					return dp.Value
				}
			}
		}
	}
	return 0
}

func TestComplete_Success(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "  We open at 11 AM.  "}}
	c, _ := newClient(t, p, completion.Config{
		SystemPrompt: "Answer using:\n{context}\nBe brief.",
		Memory:       2,
		MaxTokens:    500,
	})

	history := turns(6)
	reply, got := c.Complete(context.Background(), "When do you open?", history, "Hours - Monday: 11:00 AM - 10:00 PM")

	if reply != "We open at 11 AM." {
		t.Errorf("reply = %q", reply)
	}

	req := p.LastRequest()
	if req.SystemPrompt != "Answer using:\nHours - Monday: 11:00 AM - 10:00 PM\nBe brief." {
		t.Errorf("system prompt = %q", req.SystemPrompt)
	}
	if req.Temperature != completion.DefaultTemperature || req.MaxTokens != 500 {
		t.Errorf("temperature, max tokens = %v, %d", req.Temperature, req.MaxTokens)
	}
	// Memory 2: the last two history turns plus the user query.
	if len(req.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(req.Messages))
	}
	if req.Messages[0].Content != "turn 4" || req.Messages[2].Content != "When do you open?" || req.Messages[2].Role != llm.RoleUser {
		t.Errorf("messages = %+v", req.Messages)
	}

	// History grows by two and is trimmed to 2×Memory.
	if len(got) != 4 {
		t.Fatalf("history len = %d, want 4", len(got))
	}
	last := got[3]
	if last.Role != completion.RoleAssistant || last.Content != "We open at 11 AM." || !last.Timestamp.Equal(fixedNow) {
		t.Errorf("last turn = %+v", last)
	}
	if got[2].Content != "When do you open?" {
		t.Errorf("user turn = %+v", got[2])
	}
	if history[5].Content != "turn 5" || len(history) != 6 {
		t.Error("input history was modified")
	}
}

func TestComplete_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantReply   string
		wantReason  string
		wantHistory int
	}{
		{
			name:        "non-2xx status records the exchange",
			err:         &llm.StatusError{StatusCode: 500, Body: "upstream exploded"},
			wantReply:   completion.FallbackUnavailable,
			wantReason:  observe.FallbackUnavailable,
			wantHistory: 4,
		},
		{
			name:        "wrapped status error",
			err:         fmt.Errorf("openai: %w", &llm.StatusError{StatusCode: 429}),
			wantReply:   completion.FallbackUnavailable,
			wantReason:  observe.FallbackUnavailable,
			wantHistory: 4,
		},
		{
			name:        "deadline keeps history",
			err:         context.DeadlineExceeded,
			wantReply:   completion.FallbackTimeout,
			wantReason:  observe.FallbackTimeout,
			wantHistory: 2,
		},
		{
			name:        "provider timeout keeps history",
			err:         fmt.Errorf("anyllm: %w", llm.ErrTimeout),
			wantReply:   completion.FallbackTimeout,
			wantReason:  observe.FallbackTimeout,
			wantHistory: 2,
		},
		{
			name:        "other error keeps history",
			err:         errors.New("dial tcp: connection refused"),
			wantReply:   completion.FallbackError,
			wantReason:  observe.FallbackError,
			wantHistory: 2,
		},
		{
			name:        "open breaker",
			err:         resilience.ErrCircuitOpen,
			wantReply:   completion.FallbackError,
			wantReason:  observe.FallbackError,
			wantHistory: 2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := &llmmock.Provider{CompleteErr: tc.err}
			c, reader := newClient(t, p, completion.Config{SystemPrompt: "{context}"})

			reply, got := c.Complete(context.Background(), "Is there parking?", turns(2), "")
			if reply != tc.wantReply {
				t.Errorf("reply = %q, want %q", reply, tc.wantReply)
			}
			if len(got) != tc.wantHistory {
				t.Fatalf("history len = %d, want %d", len(got), tc.wantHistory)
			}
			if tc.wantHistory == 4 {
				if got[2].Content != "Is there parking?" || got[3].Content != tc.wantReply {
					t.Errorf("recorded exchange = %+v", got[2:])
				}
			}
			if p.CallCount() != 1 {
				t.Errorf("provider calls = %d, want exactly 1 (no retries)", p.CallCount())
			}
			if n := fallbackCount(t, reader, tc.wantReason); n != 1 {
				t.Errorf("fallback %q count = %d, want 1", tc.wantReason, n)
			}
		})
	}
}

func TestComplete_NilResponse(t *testing.T) {
	t.Parallel()
	c, _ := newClient(t, &llmmock.Provider{}, completion.Config{})
	reply, got := c.Complete(context.Background(), "hi", nil, "")
	if reply != completion.FallbackError || len(got) != 0 {
		t.Errorf("reply, history = %q, %v", reply, got)
	}
}

func TestComplete_Timeout(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteFunc: func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	c, _ := newClient(t, p, completion.Config{Timeout: 20 * time.Millisecond})

	start := time.Now()
	reply, got := c.Complete(context.Background(), "hello", turns(1), "")
	if reply != completion.FallbackTimeout {
		t.Errorf("reply = %q, want timeout fallback", reply)
	}
	if len(got) != 1 {
		t.Errorf("history len = %d, want 1", len(got))
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Complete took %v despite 20ms timeout", elapsed)
	}
}

func TestSetConfig(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "ok"}}
	c, _ := newClient(t, p, completion.Config{Memory: 5})

	c.SetConfig(completion.Config{Memory: 1, Temperature: 0.2})
	_, got := c.Complete(context.Background(), "q", turns(6), "")

	if n := len(p.LastRequest().Messages); n != 2 {
		t.Errorf("messages = %d, want 2", n)
	}
	if p.LastRequest().Temperature != 0.2 {
		t.Errorf("temperature = %v", p.LastRequest().Temperature)
	}
	if len(got) != 2 {
		t.Errorf("history len = %d, want 2", len(got))
	}
	if cfg := c.Config(); cfg.Timeout != completion.DefaultTimeout || cfg.MaxTokens != completion.DefaultMaxTokens {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestTrim(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, n, want int
	}{
		{in: 0, n: 3, want: 0},
		{in: 2, n: 3, want: 2},
		{in: 12, n: 10, want: 10},
		{in: 4, n: 0, want: 0},
	}
	for _, tc := range tests {
		got := completion.Trim(turns(tc.in), tc.n)
		if len(got) != tc.want {
			t.Errorf("Trim(%d turns, %d) len = %d, want %d", tc.in, tc.n, len(got), tc.want)
		}
		if tc.want > 0 && got[len(got)-1].Content != fmt.Sprintf("turn %d", tc.in-1) {
			t.Errorf("Trim kept %q as last turn", got[len(got)-1].Content)
		}
	}
}
