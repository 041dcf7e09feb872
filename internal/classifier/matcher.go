package classifier

import (
	ahocorasick "github.com/cloudflare/ahocorasick"
)

// keywordMatcher finds which of a fixed set of normalized keywords occur in a text,
// in a single pass over the text. Keywords match as substrings.
type keywordMatcher struct {
	keywords []string
	matcher  *ahocorasick.Matcher
}

// newKeywordMatcher indexes the distinct non-empty keywords. Keywords are expected to be
// normalized already.
func newKeywordMatcher(keywords ...[]string) *keywordMatcher {
	m := &keywordMatcher{}
	seen := make(map[string]struct{})
	for _, list := range keywords {
		for _, kw := range list {
			if kw == "" {
				continue
			}
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			m.keywords = append(m.keywords, kw)
		}
	}
	if len(m.keywords) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(m.keywords)
	}
	return m
}

// present returns the keywords occurring in text. Safe for concurrent use.
func (m *keywordMatcher) present(text string) map[string]struct{} {
	if m.matcher == nil || text == "" {
		return nil
	}
	hits := m.matcher.MatchThreadSafe([]byte(text))
	if len(hits) == 0 {
		return nil
	}
	found := make(map[string]struct{}, len(hits))
	for _, idx := range hits {
		if idx < len(m.keywords) {
			found[m.keywords[idx]] = struct{}{}
		}
	}
	return found
}

// countIn returns how many entries of keywords are in found.
func countIn(found map[string]struct{}, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if _, ok := found[kw]; ok {
			n++
		}
	}
	return n
}
