package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/harjas-romana/calling-agent/pkg/memory"
	"github.com/harjas-romana/calling-agent/pkg/provider/embeddings"
)

// Scorer computes the similarity between a query and each candidate text.
// The returned slice has one score per text, in the same order.
type Scorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Jaccard scores texts by word-set overlap: whitespace-tokenised, lowercased
// words, |A∩B| / max(|A∪B|, 1).
type Jaccard struct{}

var _ Scorer = Jaccard{}

// Score implements [Scorer]. It never fails.
func (Jaccard) Score(_ context.Context, query string, texts []string) ([]float64, error) {
	q := wordSet(query)
	out := make([]float64, len(texts))
	for i, t := range texts {
		out[i] = JaccardIndex(q, wordSet(t))
	}
	return out, nil
}

// JaccardIndex returns |a∩b| / max(|a∪b|, 1).
func JaccardIndex(a, b map[string]struct{}) float64 {
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(max(union, 1))
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// EmbeddingScorer scores texts by cosine similarity of their embedding
// vectors. Candidate vectors are looked up in an optional [memory.VectorCache]
// before the provider is asked, so static knowledge is embedded once per
// model.
type EmbeddingScorer struct {
	provider embeddings.Provider
	cache    memory.VectorCache
}

var _ Scorer = (*EmbeddingScorer)(nil)

// NewEmbeddingScorer returns a scorer backed by p. cache may be nil.
func NewEmbeddingScorer(p embeddings.Provider, cache memory.VectorCache) *EmbeddingScorer {
	return &EmbeddingScorer{provider: p, cache: cache}
}

// Score implements [Scorer].
func (s *EmbeddingScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	qv, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}

	model := s.provider.ModelID()
	vecs := make([][]float32, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)
	for i, t := range texts {
		if s.cache != nil {
			v, err := s.cache.Get(ctx, model, t)
			if err == nil {
				vecs[i] = v
				continue
			}
			if !errors.Is(err, memory.ErrNotFound) {
				slog.Warn("vector cache lookup failed", "err", err)
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		got, err := s.provider.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, fmt.Errorf("retrieval: embed candidates: %w", err)
		}
		if len(got) != len(missTexts) {
			return nil, fmt.Errorf("retrieval: embed candidates: got %d vectors for %d texts", len(got), len(missTexts))
		}
		for j, i := range missIdx {
			vecs[i] = got[j]
			if s.cache != nil {
				if err := s.cache.Put(ctx, model, missTexts[j], got[j]); err != nil {
					slog.Warn("vector cache store failed", "err", err)
				}
			}
		}
	}

	out := make([]float64, len(texts))
	for i, v := range vecs {
		out[i] = Cosine(qv, v)
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when the vectors
// differ in length or either has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
