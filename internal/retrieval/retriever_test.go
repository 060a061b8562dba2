package retrieval_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harjas-romana/calling-agent/internal/knowledge"
	"github.com/harjas-romana/calling-agent/internal/retrieval"
)

func testStore() *knowledge.Store {
	return knowledge.New("restaurant_info", map[string]any{
		"restaurant_info": map[string]any{
			"name":     "Romana Restaurant",
			"cuisine":  "Italian",
			"location": "Toronto, Canada",
			"hours": map[string]any{
				"monday": "11:00 AM - 10:00 PM",
				"friday": "11:00 AM - 11:00 PM",
			},
			"policies": map[string]any{
				"dress_code": "Business casual",
			},
			"popular_dishes": []any{
				map[string]any{"name": "Tiramisu", "price": 9.99},
			},
		},
		"faqs": []any{
			map[string]any{
				"question": "Do you offer gluten-free options?",
				"answer":   "Yes, we have gluten-free pasta and pizza crust available for an additional $2.",
			},
			map[string]any{
				"question": "Is there a corkage fee?",
				"answer":   "Yes, we allow outside wine with a $25 corkage fee per bottle.",
			},
		},
	})
}

func newRetriever(opts ...retrieval.Option) *retrieval.Retriever {
	opts = append([]retrieval.Option{retrieval.WithSections("restaurant_info")}, opts...)
	return retrieval.New(testStore(), opts...)
}

func TestRetrieve_FAQFirst(t *testing.T) {
	t.Parallel()

	got := newRetriever().Retrieve(context.Background(), "Do you offer gluten-free options?", retrieval.DefaultThreshold)
	first := strings.Split(got, "\n")[0]
	want := "FAQ: Do you offer gluten-free options? - Yes, we have gluten-free pasta and pizza crust available for an additional $2."
	if first != want {
		t.Errorf("first line = %q, want %q", first, want)
	}
}

func TestRetrieve_ThresholdAboveMax(t *testing.T) {
	t.Parallel()

	r := newRetriever()
	for _, q := range []string{
		"Do you offer gluten-free options?",
		"what are your hours on monday",
		"",
		"Romana Restaurant",
	} {
		if got := r.Retrieve(context.Background(), q, 1.1); got != retrieval.NoContext {
			t.Errorf("Retrieve(%q, 1.1) = %q, want NoContext", q, got)
		}
	}
}

func TestRetrieve_FAQBonusOnlyRanks(t *testing.T) {
	t.Parallel()

	store := knowledge.New("info", map[string]any{
		"info": map[string]any{"cuisine": "Italian"},
		"faqs": []any{
			map[string]any{"question": "Is parking available?", "answer": "Yes."},
		},
	})

	low := retrieval.New(store, retrieval.WithSections("info"), retrieval.WithScorer(constScorer(0.067)))
	if got := low.Retrieve(context.Background(), "parking", 0.1); got != retrieval.NoContext {
		t.Errorf("sub-threshold FAQ admitted: %q", got)
	}

	high := retrieval.New(store, retrieval.WithSections("info"), retrieval.WithScorer(constScorer(0.15)))
	got := strings.Split(high.Retrieve(context.Background(), "parking", 0.1), "\n")
	want := []string{"FAQ: Is parking available? - Yes.", "Cuisine: Italian"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRetrieve_KeyBonus(t *testing.T) {
	t.Parallel()

	got := newRetriever().Retrieve(context.Background(), "what is the dress code", retrieval.DefaultThreshold)
	if !strings.Contains(got, "Policies - Dress Code: Business casual") {
		t.Errorf("Retrieve missing dress code entry:\n%s", got)
	}
}

func TestRetrieve_NestedAndListFormatting(t *testing.T) {
	t.Parallel()

	r := newRetriever()
	got := r.Retrieve(context.Background(), "friday", 0.05)
	if !strings.Contains(got, "Hours - Friday: 11:00 AM - 11:00 PM") {
		t.Errorf("nested entry missing:\n%s", got)
	}

	got = r.Retrieve(context.Background(), `{"name":"tiramisu","price":9.99}`, 0.05)
	if !strings.Contains(got, "Popular Dishes: name: Tiramisu, price: 9.99") {
		t.Errorf("list entry missing:\n%s", got)
	}
}

func TestRetrieve_TopNAndTieOrder(t *testing.T) {
	t.Parallel()

	// Every entry scores 1 with this scorer, so order is walk order.
	r := newRetriever(retrieval.WithScorer(constScorer(1)), retrieval.WithTopN(3), retrieval.WithFAQPath(""))
	got := strings.Split(r.Retrieve(context.Background(), "anything", 0.5), "\n")
	want := []string{
		"Cuisine: Italian",
		"Hours - Friday: 11:00 AM - 11:00 PM",
		"Hours - Monday: 11:00 AM - 10:00 PM",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRetrieve_ScorerErrorScoresZero(t *testing.T) {
	t.Parallel()

	r := newRetriever(retrieval.WithScorer(errScorer{}))
	if got := r.Retrieve(context.Background(), "hello", 0.1); got != retrieval.NoContext {
		t.Errorf("Retrieve = %q, want NoContext", got)
	}
	// The key bonus still applies on top of a zero similarity.
	if got := r.Retrieve(context.Background(), "what about the cuisine", 0.1); got != "Cuisine: Italian" {
		t.Errorf("Retrieve = %q, want key-bonus entry", got)
	}
}

func TestRetrieve_EmptyStore(t *testing.T) {
	t.Parallel()

	r := retrieval.New(knowledge.New("x", nil), retrieval.WithSections("x"))
	if got := r.Retrieve(context.Background(), "hello", 0); got != retrieval.NoContext {
		t.Errorf("Retrieve = %q, want NoContext", got)
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"dress_code":        "Dress Code",
		"name":              "Name",
		"popular_countries": "Popular Countries",
		"élan_VITAL":        "Élan Vital",
		"":                  "",
	}
	for in, want := range tests {
		if got := retrieval.Title(in); got != want {
			t.Errorf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}

type constScorer float64

func (c constScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	out := make([]float64, len(texts))
	for i := range out {
		out[i] = float64(c)
	}
	return out, nil
}

type errScorer struct{}

func (errScorer) Score(context.Context, string, []string) ([]float64, error) {
	return nil, errors.New("scorer down")
}
