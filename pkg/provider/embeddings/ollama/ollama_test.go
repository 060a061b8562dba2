package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/harjas-romana/calling-agent/internal/retrieval"
	"github.com/harjas-romana/calling-agent/pkg/memory"
	"github.com/harjas-romana/calling-agent/pkg/provider/embeddings/ollama"
)

type embedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	KeepAlive string   `json:"keep_alive"`
}

// fakeOllama answers /api/embed with topic vectors: one axis each for
// opening hours, parking and desserts.
type fakeOllama struct {
	mu       sync.Mutex
	requests []embedRequest

	// status and body replace the normal answer when status is non-zero.
	status int
	body   string
	// dims overrides the vector length when positive.
	dims int
}

func (f *fakeOllama) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/embed" {
			t.Errorf("request = %s %s, want POST /api/embed", r.Method, r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		status, body, dims := f.status, f.body, f.dims
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		vecs := make([][]float32, len(req.Input))
		for i, in := range req.Input {
			vecs[i] = topicVector(in)
			if dims > 0 {
				vecs[i] = make([]float32, dims)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "embeddings": vecs})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeOllama) inputs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Input
	}
	return out
}

func topicVector(text string) []float32 {
	text = strings.ToLower(text)
	v := []float32{0.05, 0.05, 0.05}
	for axis, words := range [][]string{
		{"hours", "open", "friday", "pm"},
		{"parking", "park", "car"},
		{"tiramisu", "dessert", "sweet"},
	} {
		for _, w := range words {
			if strings.Contains(text, w) {
				v[axis]++
			}
		}
	}
	return v
}

var knowledgeEntries = []string{
	"Hours - Friday: 11:00 AM - 11:00 PM",
	"FAQ: Is parking available? - Yes, free parking behind the restaurant.",
	"Popular Dishes: name: Tiramisu, price: 9.99",
}

func newProvider(t *testing.T, srv *httptest.Server, opts ...ollama.Option) *ollama.Provider {
	t.Helper()
	opts = append([]ollama.Option{ollama.WithDimensions(3)}, opts...)
	p, err := ollama.New(srv.URL, "nomic-embed-text", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestScorer_RanksKnowledgeEntries(t *testing.T) {
	t.Parallel()
	fake := &fakeOllama{}
	srv := fake.start(t)
	cache := &memory.MemVectorCache{}
	scorer := retrieval.NewEmbeddingScorer(newProvider(t, srv), cache)

	tests := []struct {
		query string
		best  int
	}{
		{query: "are you open late on friday", best: 0},
		{query: "where can I park my car", best: 1},
		{query: "do you have tiramisu for dessert", best: 2},
	}
	for _, tt := range tests {
		scores, err := scorer.Score(context.Background(), tt.query, knowledgeEntries)
		if err != nil {
			t.Fatalf("Score(%q): %v", tt.query, err)
		}
		for i, s := range scores {
			if i != tt.best && s >= scores[tt.best] {
				t.Errorf("Score(%q): entry %d scored %v, not below best %v", tt.query, i, s, scores[tt.best])
			}
		}
	}

	// Entries are embedded once; later turns only embed the question.
	if got := cache.Len(); got != len(knowledgeEntries) {
		t.Errorf("cached vectors = %d, want %d", got, len(knowledgeEntries))
	}
	calls := fake.inputs()
	if len(calls) != 4 {
		t.Fatalf("requests = %d, want 4: %q", len(calls), calls)
	}
	for _, in := range calls[2:] {
		if len(in) != 1 || !strings.HasPrefix(in[0], "search_query: ") {
			t.Errorf("later request = %q, want the question only", in)
		}
	}
}

func TestRetriever_WithOllamaScorer(t *testing.T) {
	t.Parallel()
	srv := (&fakeOllama{}).start(t)

	src := mapSource{"faqs": []any{
		map[string]any{"question": "Is parking available?", "answer": "Yes, free parking behind the restaurant."},
		map[string]any{"question": "Do you serve dessert?", "answer": "Our tiramisu is famous."},
	}}
	r := retrieval.New(src,
		retrieval.WithScorer(retrieval.NewEmbeddingScorer(newProvider(t, srv), &memory.MemVectorCache{})),
		retrieval.WithTopN(1),
	)
	got := r.Retrieve(context.Background(), "is there a place to park the car", 0.5)
	if got != "FAQ: Is parking available? - Yes, free parking behind the restaurant." {
		t.Errorf("Retrieve = %q", got)
	}
}

type mapSource map[string]any

func (m mapSource) Get(path string) any { return m[path] }

func TestPrefixes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		model     string
		opts      []ollama.Option
		wantQuery string
		wantDoc   string
	}{
		{
			name:      "nomic",
			model:     "nomic-embed-text:v1.5",
			wantQuery: "search_query: when do you open",
			wantDoc:   "search_document: Hours - Friday: 11:00 AM - 11:00 PM",
		},
		{
			name:      "mxbai query only",
			model:     "mxbai-embed-large",
			wantQuery: "Represent this sentence for searching relevant passages: when do you open",
			wantDoc:   "Hours - Friday: 11:00 AM - 11:00 PM",
		},
		{
			name:      "disabled",
			model:     "nomic-embed-text",
			opts:      []ollama.Option{ollama.WithPrefixes("", "")},
			wantQuery: "when do you open",
			wantDoc:   "Hours - Friday: 11:00 AM - 11:00 PM",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeOllama{}
			srv := fake.start(t)
			opts := append([]ollama.Option{ollama.WithDimensions(3)}, tt.opts...)
			p, err := ollama.New(srv.URL, tt.model, opts...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if _, err := p.Embed(context.Background(), "when do you open"); err != nil {
				t.Fatalf("Embed: %v", err)
			}
			if _, err := p.EmbedBatch(context.Background(), knowledgeEntries[:1]); err != nil {
				t.Fatalf("EmbedBatch: %v", err)
			}
			calls := fake.inputs()
			if calls[0][0] != tt.wantQuery {
				t.Errorf("query input = %q, want %q", calls[0][0], tt.wantQuery)
			}
			if calls[1][0] != tt.wantDoc {
				t.Errorf("document input = %q, want %q", calls[1][0], tt.wantDoc)
			}
		})
	}
}

func TestEmbedBatch_SplitsLargeKnowledgeBase(t *testing.T) {
	t.Parallel()
	fake := &fakeOllama{}
	srv := fake.start(t)
	p := newProvider(t, srv, ollama.WithBatchSize(2), ollama.WithKeepAlive("30m"), ollama.WithPrefixes("", ""))

	texts := append(append([]string{}, knowledgeEntries...), "Hours - Monday: 11:00 AM - 10:00 PM", "Parking: valet on weekends")
	vecs, err := p.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("vectors = %d, want %d", len(vecs), len(texts))
	}
	for i, text := range texts {
		if want := topicVector(text); vecs[i][0] != want[0] || vecs[i][1] != want[1] || vecs[i][2] != want[2] {
			t.Errorf("vector %d = %v, want %v", i, vecs[i], want)
		}
	}

	calls := fake.inputs()
	sizes := make([]int, len(calls))
	for i, in := range calls {
		sizes[i] = len(in)
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [2 2 1]", sizes)
	}
	fake.mu.Lock()
	keepAlive := fake.requests[0].KeepAlive
	fake.mu.Unlock()
	if keepAlive != "30m" {
		t.Errorf("keep_alive = %q, want 30m", keepAlive)
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	t.Parallel()
	fake := &fakeOllama{}
	p := newProvider(t, fake.start(t))

	vecs, err := p.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("EmbedBatch(nil) = %v, %v", vecs, err)
	}
	if n := len(fake.inputs()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestEmbed_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		dims   int
		check  func(error) bool
		detail string
	}{
		{
			name:   "model not pulled",
			status: http.StatusNotFound,
			body:   `{"error":"model \"nomic-embed-text\" not found, try pulling it first"}`,
			check: func(err error) bool {
				var se *ollama.StatusError
				return errors.As(err, &se) && se.StatusCode == http.StatusNotFound && strings.Contains(se.Message, "try pulling")
			},
			detail: "StatusError 404 with the server message",
		},
		{
			name:   "plain text failure",
			status: http.StatusBadGateway,
			body:   "upstream down",
			check: func(err error) bool {
				var se *ollama.StatusError
				return errors.As(err, &se) && se.Message == "upstream down"
			},
			detail: "StatusError carrying the raw body",
		},
		{
			name:   "wrong vector length",
			dims:   5,
			check:  func(err error) bool { return errors.Is(err, ollama.ErrDimensionMismatch) },
			detail: "ErrDimensionMismatch",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeOllama{status: tt.status, body: tt.body, dims: tt.dims}
			p := newProvider(t, fake.start(t))
			_, err := p.Embed(context.Background(), "are you open on friday")
			if !tt.check(err) {
				t.Errorf("Embed err = %v, want %s", err, tt.detail)
			}
		})
	}
}

func TestEmbed_MalformedJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [[0.1, `))
	}))
	t.Cleanup(srv.Close)

	p := newProvider(t, srv)
	if _, err := p.Embed(context.Background(), "hello"); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("err = %v, want a decode error", err)
	}
}

func TestEmbed_ServerUnreachable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := ollama.New(url, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Embed(context.Background(), "hello"); err == nil {
		t.Error("Embed succeeded against a closed server")
	}
}

func TestEmbed_Canceled(t *testing.T) {
	t.Parallel()
	p := newProvider(t, (&fakeOllama{}).start(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Embed(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	p, err := ollama.New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.ModelID() != ollama.DefaultModel || p.Dimensions() != 768 {
		t.Errorf("defaults = %q/%d, want %q/768", p.ModelID(), p.Dimensions(), ollama.DefaultModel)
	}

	if _, err := ollama.New("localhost:11434", "all-minilm"); err == nil {
		t.Error("New accepted a base url without a scheme")
	}

	// Unknown models learn their length from the first answer.
	fake := &fakeOllama{}
	srv := fake.start(t)
	custom, err := ollama.New(srv.URL+"/", "house-embedder")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if custom.Dimensions() != 0 {
		t.Errorf("Dimensions before first call = %d, want 0", custom.Dimensions())
	}
	if _, err := custom.Embed(context.Background(), "hours"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if custom.Dimensions() != 3 {
		t.Errorf("Dimensions = %d, want 3", custom.Dimensions())
	}
}
