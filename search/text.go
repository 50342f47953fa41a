package search

import "strings"

// verbatimBoost is added to the score of a section containing every query term.
const verbatimBoost = 0.3

// Stop words ignored when checking for verbatim matches
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "or": true, "if": true, "how": true, "what": true,
}

// terms splits text into lowercased words without surrounding punctuation,
// dropping stop words. Markdown emphasis and code markers count as punctuation.
func terms(text string) []string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}`*_#>"))
		if cleaned != "" && !stopWords[cleaned] {
			out = append(out, cleaned)
		}
	}
	return out
}

// matcher reports whether documents contain every term of a query.
type matcher struct {
	query []string
}

func newMatcher(query string) *matcher {
	return &matcher{query: terms(query)}
}

// matches is false for queries made only of stop words.
func (m *matcher) matches(document string) bool {
	if len(m.query) == 0 {
		return false
	}
	docTerms := make(map[string]struct{})
	for _, t := range terms(document) {
		docTerms[t] = struct{}{}
	}
	for _, q := range m.query {
		if _, ok := docTerms[q]; !ok {
			return false
		}
	}
	return true
}
