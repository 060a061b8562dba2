package retrieval

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

var punct = regexp.MustCompile(`[^\w\s]`)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an the and or but if because as what which this that these those
		then just so than such both through about for is of while during to from in out on off over
		under again once here there when where why how all any each few more most some no nor not
		only own same too very can will should now`) {
		stopwords[w] = struct{}{}
	}
}

// Enhancer widens a query with related terms before retrieval. Each synonym
// table key is matched as a substring of the query's keywords, so "allerg"
// covers "allergy" and "allergies".
type Enhancer struct {
	synonyms map[string][]string
}

// NewEnhancer returns an Enhancer using synonyms. A nil table only adds the
// query's own keywords.
func NewEnhancer(synonyms map[string][]string) *Enhancer {
	return &Enhancer{synonyms: synonyms}
}

// Keywords returns the unique, sorted non-stopword words of at least three
// characters in text.
func Keywords(text string) []string {
	cleaned := punct.ReplaceAllString(strings.ToLower(text), " ")
	seen := map[string]struct{}{}
	var out []string
	for _, w := range strings.Fields(cleaned) {
		if _, stop := stopwords[w]; stop || utf8.RuneCountInString(w) < 3 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}

// Enhance returns query followed by its keywords and their related terms,
// sorted and de-duplicated.
func (e *Enhancer) Enhance(query string) string {
	keywords := Keywords(query)
	terms := map[string]struct{}{}
	for _, kw := range keywords {
		terms[kw] = struct{}{}
		for stem, related := range e.synonyms {
			if strings.Contains(kw, stem) {
				for _, r := range related {
					terms[r] = struct{}{}
				}
			}
		}
	}
	if len(terms) == 0 {
		return query
	}
	sorted := make([]string, 0, len(terms))
	for t := range terms {
		sorted = append(sorted, t)
	}
	slices.Sort(sorted)
	return query + " " + strings.Join(sorted, " ")
}
