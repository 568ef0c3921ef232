package listing

import (
	"errors"
	"slices"
)

// ErrParse marks result-page markup that could not be turned into a document.
var ErrParse = errors.New("failed to parse result page")

// Set is a set of normalized listing URLs.
type Set map[string]struct{}

func (s Set) Add(u string) {
	s[u] = struct{}{}
}

func (s Set) Has(u string) bool {
	_, ok := s[u]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}
