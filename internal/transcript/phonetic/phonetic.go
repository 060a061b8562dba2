// Package phonetic matches misheard phrases against a fixed vocabulary using
// Double Metaphone phonetic encoding combined with Jaro-Winkler string
// similarity.
//
// A phrase is compared with a vocabulary term only when both have the same
// number of words, or when a two-word phrase may be a split single-word term
// ("tira misu" for "Tiramisu"). The comparison proceeds in two stages:
//
//  1. Phonetic candidates: some aligned word pair shares a Double Metaphone
//     code. Candidates are accepted at the phonetic threshold (default 0.85).
//  2. Fuzzy fallback: without a phonetic overlap the Jaro-Winkler score must
//     reach the much stricter fuzzy threshold (default 0.97).
//
// A single word that merely extends a term, or is a prefix of one, is never
// rewritten: "indian" stays "indian" next to "India".
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.85
	defaultFuzzyThreshold    = 0.97
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically aligned term. Default: 0.85.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a term with no
// phonetic overlap. Default: 0.97.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match returns the vocabulary term closest to phrase.
//
// An exact case-insensitive match (ignoring the space of a split word)
// scores 1. When matched is false, corrected equals phrase and confidence
// is 0.
func (m *Matcher) Match(phrase string, vocabulary []string) (corrected string, confidence float64, matched bool) {
	tokens := strings.Fields(strings.ToLower(phrase))
	if len(tokens) == 0 || len(vocabulary) == 0 {
		return phrase, 0, false
	}
	joined := strings.Join(tokens, " ")

	var (
		best      string
		bestScore float64
	)
	for _, term := range vocabulary {
		termTokens := strings.Fields(strings.ToLower(term))
		if len(termTokens) == 0 {
			continue
		}
		score, ok := m.score(tokens, joined, termTokens)
		if ok && score > bestScore {
			best, bestScore = term, score
		}
	}
	if best == "" {
		return phrase, 0, false
	}
	return best, bestScore, true
}

// score compares one phrase with one term. ok is false when the pair is
// not comparable or falls below both thresholds.
func (m *Matcher) score(tokens []string, joined string, termTokens []string) (float64, bool) {
	termJoined := strings.Join(termTokens, " ")

	var (
		jw       float64
		phonetic bool
	)
	switch {
	case len(tokens) == len(termTokens):
		if joined == termJoined {
			return 1, true
		}
		if len(tokens) == 1 && (strings.HasPrefix(joined, termJoined) || strings.HasPrefix(termJoined, joined)) {
			return 0, false
		}
		jw = matchr.JaroWinkler(joined, termJoined, false)
		for i := range tokens {
			if codesOverlap(codes(tokens[i]), codes(termTokens[i])) {
				phonetic = true
				break
			}
		}
	case len(termTokens) == 1 && len(tokens) == 2:
		concat := tokens[0] + tokens[1]
		if concat == termJoined {
			return 1, true
		}
		jw = matchr.JaroWinkler(concat, termJoined, false)
		phonetic = codesOverlap(codes(concat), codes(termJoined))
	default:
		return 0, false
	}

	if phonetic && jw >= m.phoneticThreshold {
		return jw, true
	}
	if jw >= m.fuzzyThreshold {
		return jw, true
	}
	return 0, false
}

// codes returns the non-empty Double Metaphone codes of word.
func codes(word string) []string {
	p, s := matchr.DoubleMetaphone(word)
	out := make([]string, 0, 2)
	if p != "" {
		out = append(out, p)
	}
	if s != "" && s != p {
		out = append(out, s)
	}
	return out
}

func codesOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
