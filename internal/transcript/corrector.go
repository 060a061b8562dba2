// Package transcript repairs speech-to-text output before it is routed.
//
// Recognisers routinely mangle proper nouns such as dish names, the business
// name or destination countries. A [Corrector] scans a transcript for word
// windows that sound like a term of the domain vocabulary and rewrites them
// with the vocabulary spelling, so keyword matching and the menu lookup see
// the words the caller meant.
package transcript

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/harjas-romana/calling-agent/internal/transcript/phonetic"
)

const defaultMinLetters = 4

// Correction records one rewrite applied by a [Corrector].
type Correction struct {
	// Original is the transcript text that was replaced, without surrounding
	// punctuation.
	Original string

	// Corrected is the vocabulary term it was replaced with.
	Corrected string

	// Confidence is the matcher score in [0, 1].
	Confidence float64
}

// Matcher finds the vocabulary term closest to a phrase. When matched is
// false, corrected equals phrase and confidence is 0.
//
// Implementations must be safe for concurrent use.
type Matcher interface {
	Match(phrase string, vocabulary []string) (corrected string, confidence float64, matched bool)
}

var _ Matcher = (*phonetic.Matcher)(nil)

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithMatcher replaces the default [phonetic.Matcher].
func WithMatcher(m Matcher) Option {
	return func(c *Corrector) {
		c.matcher = m
	}
}

// WithMinLetters sets the minimum number of letters a word window needs
// before it is considered for correction. Default: 4.
func WithMinLetters(n int) Option {
	return func(c *Corrector) {
		c.minLetters = n
	}
}

// Corrector rewrites misheard vocabulary terms. It is read-only after
// construction and safe for concurrent use.
type Corrector struct {
	matcher    Matcher
	vocabulary []string
	maxWords   int
	minLetters int
}

// NewCorrector returns a Corrector for the given vocabulary.
func NewCorrector(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		matcher:    phonetic.New(),
		vocabulary: append([]string(nil), vocabulary...),
		maxWords:   2, // a split single-word term spans two tokens
		minLetters: defaultMinLetters,
	}
	for _, term := range c.vocabulary {
		if n := len(strings.Fields(term)); n > c.maxWords {
			c.maxWords = n
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Vocabulary returns a copy of the terms the Corrector matches against.
func (c *Corrector) Vocabulary() []string {
	return append([]string(nil), c.vocabulary...)
}

// Correct returns text with every misheard vocabulary term replaced, plus the
// list of replacements in transcript order. Windows never span punctuation
// between words. At each position the best-scoring window wins; an exact
// occurrence of a term is consumed unchanged.
func (c *Corrector) Correct(text string) (string, []Correction) {
	if len(c.vocabulary) == 0 {
		return text, nil
	}
	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))
	var corrections []Correction

	for i := 0; i < len(tokens); {
		width, term, conf := c.bestWindow(tokens[i:])
		if width == 0 {
			out = append(out, tokens[i])
			i++
			continue
		}

		window := tokens[i : i+width]
		words := make([]string, width)
		for k, tok := range window {
			words[k] = core(tok)
		}
		original := strings.Join(words, " ")
		if strings.EqualFold(original, term) {
			out = append(out, window...)
		} else {
			lead, _ := splitPunct(window[0])
			_, trail := splitPunct(window[width-1])
			out = append(out, lead+term+trail)
			corrections = append(corrections, Correction{Original: original, Corrected: term, Confidence: conf})
		}
		i += width
	}

	if len(corrections) > 0 {
		slog.Debug("transcript corrected", "corrections", len(corrections))
	}
	return strings.Join(out, " "), corrections
}

// bestWindow returns the width, term and score of the best match starting
// at tokens[0], or width 0 when nothing matches.
func (c *Corrector) bestWindow(tokens []string) (int, string, float64) {
	maxWidth := min(c.maxWords, len(tokens))
	// A window may only continue past a token without trailing punctuation.
	for k := 0; k < maxWidth-1; k++ {
		if _, trail := splitPunct(tokens[k]); trail != "" {
			maxWidth = k + 1
			break
		}
	}

	var (
		bestWidth int
		bestTerm  string
		bestConf  float64
	)
	for width := maxWidth; width >= 1; width-- {
		words := make([]string, 0, width)
		letters := 0
		for _, tok := range tokens[:width] {
			w := core(tok)
			if w == "" {
				break
			}
			words = append(words, w)
			letters += countLetters(w)
		}
		if len(words) != width || letters < c.minLetters {
			continue
		}
		term, conf, ok := c.matcher.Match(strings.Join(words, " "), c.vocabulary)
		if ok && conf > bestConf {
			bestWidth, bestTerm, bestConf = width, term, conf
		}
	}
	return bestWidth, bestTerm, bestConf
}

// splitPunct returns the leading and trailing punctuation of tok.
func splitPunct(tok string) (lead, trail string) {
	w := core(tok)
	if w == "" {
		return tok, ""
	}
	idx := strings.Index(tok, w)
	return tok[:idx], tok[idx+len(w):]
}

// core strips leading and trailing characters that are neither letters nor
// digits.
func core(tok string) string {
	return strings.TrimFunc(tok, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
