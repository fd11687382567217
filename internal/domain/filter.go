// Package domain implements the keyword heuristic that decides whether text
// belongs to the oncology domain.
package domain

import "strings"

// Filter matches text against a fixed keyword set by lowercase substring.
type Filter struct {
	keywords []string
}

// NewFilter returns a filter over keywords. Keywords are trimmed and
// lowercased; empty and repeated entries are dropped.
func NewFilter(keywords []string) *Filter {
	seen := make(map[string]bool, len(keywords))
	f := &Filter{keywords: make([]string, 0, len(keywords))}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		f.keywords = append(f.keywords, k)
	}
	return f
}

// IsInDomain reports whether text contains at least one keyword.
func (f *Filter) IsInDomain(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Matches returns the keywords found in text, in keyword order.
func (f *Filter) Matches(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			out = append(out, k)
		}
	}
	return out
}

// Keywords returns a copy of the normalized keyword set.
func (f *Filter) Keywords() []string {
	return append([]string(nil), f.keywords...)
}
