// Package retrieval selects knowledge entries relevant to a free-text query
// and renders them as the context blob handed to the completion client.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/harjas-romana/calling-agent/internal/knowledge"
)

// NoContext is returned by [Retriever.Retrieve] when no entry clears the
// threshold.
const NoContext = "No specific context found for your query."

// Defaults.
const (
	DefaultThreshold = 0.1
	DefaultTopN      = 5
	DefaultFAQPath   = "faqs"
)

const (
	keyBonus = 0.2
	faqBonus = 0.1
)

// Source is the read side of the knowledge store.
type Source interface {
	Get(path string) any
}

// Option configures a [Retriever].
type Option func(*Retriever)

// WithScorer replaces the default [Jaccard] scorer.
func WithScorer(s Scorer) Option {
	return func(r *Retriever) { r.scorer = s }
}

// WithSections sets the top-level knowledge keys that are walked, in order.
func WithSections(sections ...string) Option {
	return func(r *Retriever) { r.sections = sections }
}

// WithFAQPath sets the path of the question/answer list. Empty disables FAQs.
func WithFAQPath(path string) Option {
	return func(r *Retriever) { r.faqPath = path }
}

// WithTopN sets how many entries are kept.
func WithTopN(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.topN = n
		}
	}
}

// Retriever scores knowledge entries against queries.
// It is safe for concurrent use if its [Source] and [Scorer] are.
type Retriever struct {
	src      Source
	scorer   Scorer
	sections []string
	faqPath  string
	topN     int
}

// New returns a Retriever over src.
func New(src Source, opts ...Option) *Retriever {
	r := &Retriever{
		src:     src,
		scorer:  Jaccard{},
		faqPath: DefaultFAQPath,
		topN:    DefaultTopN,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// entry is one scorable piece of knowledge.
type entry struct {
	text   string   // rendered context line
	inputs []string // texts scored against the query; the max counts
	key    string   // bonus key, empty for none
	bonus  float64  // flat bonus added to the similarity
}

type scored struct {
	text  string
	score float64
}

// Retrieve returns up to topN rendered entries whose score exceeds
// threshold, best first and joined by newlines, or [NoContext].
func (r *Retriever) Retrieve(ctx context.Context, query string, threshold float64) string {
	clean := strings.ToLower(strings.TrimSpace(query))
	entries := r.entries()
	if len(entries) == 0 {
		return NoContext
	}

	var inputs []string
	for _, e := range entries {
		inputs = append(inputs, e.inputs...)
	}
	sims, err := r.scorer.Score(ctx, clean, inputs)
	if err != nil || len(sims) != len(inputs) {
		slog.Warn("retrieval scoring failed, scoring entries as zero", "err", err)
		sims = make([]float64, len(inputs))
	}

	var kept []scored
	pos := 0
	for _, e := range entries {
		sim := slices.Max(sims[pos : pos+len(e.inputs)])
		pos += len(e.inputs)

		if e.key != "" && strings.Contains(clean, strings.ReplaceAll(strings.ToLower(e.key), "_", " ")) {
			sim += keyBonus
		}
		// The FAQ bonus only orders results; admission uses the raw similarity.
		if sim > threshold {
			kept = append(kept, scored{text: e.text, score: sim + e.bonus})
		}
	}
	if len(kept) == 0 {
		return NoContext
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	if len(kept) > r.topN {
		kept = kept[:r.topN]
	}
	lines := make([]string, len(kept))
	for i, k := range kept {
		lines[i] = k.text
	}
	return strings.Join(lines, "\n")
}

// entries walks the configured sections in key order, then the FAQ list.
func (r *Retriever) entries() []entry {
	var out []entry
	for _, section := range r.sections {
		switch v := r.src.Get(section).(type) {
		case map[string]any:
			for _, key := range sortedKeys(v) {
				out = append(out, valueEntries(key, v[key])...)
			}
		default:
			out = append(out, valueEntries(section, v)...)
		}
	}
	if r.faqPath != "" {
		for _, faq := range knowledge.Items(r.src.Get(r.faqPath)) {
			q, a := knowledge.String(faq["question"]), knowledge.String(faq["answer"])
			if q == "" && a == "" {
				continue
			}
			out = append(out, entry{
				text:   fmt.Sprintf("FAQ: %s - %s", q, a),
				inputs: []string{q, a},
				bonus:  faqBonus,
			})
		}
	}
	return out
}

func valueEntries(key string, v any) []entry {
	title := Title(key)
	switch t := v.(type) {
	case map[string]any:
		out := make([]entry, 0, len(t))
		for _, sub := range sortedKeys(t) {
			val := render(t[sub])
			out = append(out, entry{
				text:   fmt.Sprintf("%s - %s: %s", title, Title(sub), val),
				inputs: []string{sub + ": " + val},
				key:    sub,
			})
		}
		return out
	case []any, []map[string]any, []string:
		var out []entry
		for _, item := range listItems(t) {
			out = append(out, entry{
				text:   fmt.Sprintf("%s: %s", title, render(item)),
				inputs: []string{scoreText(item)},
			})
		}
		return out
	case nil:
		return nil
	default:
		s := knowledge.String(t)
		return []entry{{
			text:   fmt.Sprintf("%s: %s", title, s),
			inputs: []string{s},
			key:    key,
		}}
	}
}

func listItems(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return nil
}

// scoreText is the text a list item is scored against: JSON for mappings,
// the plain value otherwise.
func scoreText(v any) string {
	if m, ok := v.(map[string]any); ok {
		raw, err := json.Marshal(m)
		if err == nil {
			return string(raw)
		}
	}
	return render(v)
}

// render formats a knowledge value for the context blob.
func render(v any) string {
	switch t := v.(type) {
	case map[string]any:
		parts := make([]string, 0, len(t))
		for _, k := range sortedKeys(t) {
			parts = append(parts, k+": "+render(t[k]))
		}
		return strings.Join(parts, ", ")
	case []any, []map[string]any, []string:
		items := listItems(t)
		parts := make([]string, len(items))
		for i, e := range items {
			parts[i] = render(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return knowledge.String(t)
	}
}

// Title converts a snake_case key to title case: "dress_code" → "Dress Code".
func Title(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
