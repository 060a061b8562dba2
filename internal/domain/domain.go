// Package domain describes one assistant: the business it speaks for, its
// knowledge base, intent table, fixed replies and slot-filling flows. The
// router is generic; everything business-specific lives in a [Domain].
package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harjas-romana/calling-agent/internal/dialogue"
	"github.com/harjas-romana/calling-agent/internal/knowledge"
)

// RAGIntent is reported for turns answered by retrieval and completion.
const RAGIntent = "rag"

// Source is the read side of the knowledge store.
type Source interface {
	Get(path string) any
}

// Request is what a fixed handler sees.
type Request struct {
	Text  string
	Lower string
	Now   time.Time
}

// FixedHandler produces a canned reply without touching the language model.
type FixedHandler func(req Request) string

// Intent maps keywords to a handler. An utterance matches when its lower-case
// form contains any keyword as a substring.
type Intent struct {
	Name     string
	Keywords []string
}

// Matches reports whether lower contains one of the intent's keywords.
func (i Intent) Matches(lower string) bool {
	for _, k := range i.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Domain is a complete assistant configuration.
type Domain struct {
	// Name is the short identifier ("restaurant", "travel").
	Name string
	// Business is the name the assistant speaks for.
	Business string

	// RequiredKey is the top-level knowledge key a restored backup must have.
	RequiredKey string
	// Sections are the knowledge subtrees searched by retrieval, besides FAQs.
	Sections []string

	// SystemPrompt is the completion instruction template with a {context}
	// placeholder.
	SystemPrompt string
	// MaxTokens caps completion length for this domain.
	MaxTokens int

	// Intents are evaluated in order; the first match wins.
	Intents []Intent
	// Fixed answers intents with canned text.
	Fixed map[string]FixedHandler
	// Starts opens a dialogue session for intents that begin a transaction.
	Starts map[string]dialogue.Kind
	// Flows are the transaction state machines.
	Flows []dialogue.Flow

	// Synonyms expand retrieval queries.
	Synonyms map[string][]string
	// Vocabulary lists proper names speech recognition tends to mangle.
	Vocabulary []string
}

// Match returns the first intent matching text.
func (d *Domain) Match(text string) (Intent, bool) {
	lower := strings.ToLower(text)
	for _, in := range d.Intents {
		if in.Matches(lower) {
			return in, true
		}
	}
	return Intent{}, false
}

// Validate checks that every intent is wired to exactly one handler and that
// every flow is well formed.
func (d *Domain) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	if d.RequiredKey == "" {
		errs = append(errs, errors.New("required knowledge key is empty"))
	}
	if !strings.Contains(d.SystemPrompt, "{context}") {
		errs = append(errs, errors.New("system prompt has no {context} placeholder"))
	}

	kinds := make(map[dialogue.Kind]bool, len(d.Flows))
	for _, f := range d.Flows {
		if err := f.Validate(); err != nil {
			errs = append(errs, err)
		}
		kinds[f.Kind] = true
	}

	seen := make(map[string]bool, len(d.Intents))
	for _, in := range d.Intents {
		if seen[in.Name] {
			errs = append(errs, fmt.Errorf("intent %q listed twice", in.Name))
		}
		seen[in.Name] = true
		if len(in.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("intent %q has no keywords", in.Name))
		}
		_, fixed := d.Fixed[in.Name]
		kind, starts := d.Starts[in.Name]
		switch {
		case fixed && starts:
			errs = append(errs, fmt.Errorf("intent %q is both fixed and a session start", in.Name))
		case !fixed && !starts:
			errs = append(errs, fmt.Errorf("intent %q has no handler", in.Name))
		case starts && !kinds[kind]:
			errs = append(errs, fmt.Errorf("intent %q starts unknown flow %q", in.Name, kind))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("domain %q: %w", d.Name, err)
	}
	return nil
}

// Factory builds a [Domain] around its knowledge store.
type Factory struct {
	// RequiredKey is the domain's top-level knowledge key.
	RequiredKey string
	// Knowledge returns a fresh copy of the default knowledge base.
	Knowledge func() map[string]any
	// New builds the domain reading live knowledge from src.
	New func(src Source) *Domain
}

// LogFeedback records customer feedback at info level.
func LogFeedback(domain, text string) {
	slog.Info("customer feedback received", "domain", domain, "feedback", text)
}

// HoursReply renders an opening-hours listing from a knowledge mapping keyed
// by lower-case weekday, Monday first.
func HoursReply(intro string, hours map[string]any, outro string) string {
	var b strings.Builder
	b.WriteString(intro)
	for _, day := range Week {
		v, ok := hours[strings.ToLower(day.String())]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", day, knowledge.String(v))
	}
	b.WriteString("\n\n")
	b.WriteString(outro)
	return b.String()
}

// Week lists weekdays Monday first.
var Week = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}
