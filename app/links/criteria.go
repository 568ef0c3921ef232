package links

import (
	"fmt"
	"strings"
)

// Criteria selects stored links. Zero values mean "not filtered".
type Criteria struct {
	Agencies      []string
	Year          int
	Month         int
	Day           int
	LastBatchOnly bool
}

func (c Criteria) Validate() error {
	if c.Year != 0 && (c.Year < 1 || c.Year > 9999) {
		return fmt.Errorf("%w: year must be between 1 and 9999", ErrValidation)
	}
	if c.Month != 0 && (c.Month < 1 || c.Month > 12) {
		return fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	}
	if c.Day != 0 && (c.Day < 1 || c.Day > 31) {
		return fmt.Errorf("%w: day must be between 1 and 31", ErrValidation)
	}
	return nil
}

func (c Criteria) HasDate() bool {
	return c.Year != 0 || c.Month != 0 || c.Day != 0
}

func (c Criteria) IsEmpty() bool {
	return !c.HasDate() && len(c.agencySet()) == 0 && !c.LastBatchOnly
}

// agencySet returns the trimmed, canonical agency filter.
func (c Criteria) agencySet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Agencies))
	for _, name := range c.Agencies {
		if name = CanonicalAgency(name); name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// ParseAgencyList splits a comma separated list of agency names.
func ParseAgencyList(value string) []string {
	var names []string
	for _, name := range strings.Split(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

type matcher struct {
	criteria  Criteria
	agencies  map[string]struct{}
	lastBatch map[string]struct{}
}

func newMatcher(c Criteria, lastBatch map[string]struct{}) *matcher {
	return &matcher{
		criteria:  c,
		agencies:  c.agencySet(),
		lastBatch: lastBatch,
	}
}

func (m *matcher) match(link Link) bool {
	if m.criteria.LastBatchOnly {
		if _, ok := m.lastBatch[link.URL]; !ok {
			return false
		}
	}

	if m.criteria.HasDate() {
		t, ok := link.Time()
		if !ok {
			return false
		}
		if m.criteria.Year != 0 && t.Year() != m.criteria.Year {
			return false
		}
		if m.criteria.Month != 0 && int(t.Month()) != m.criteria.Month {
			return false
		}
		if m.criteria.Day != 0 && t.Day() != m.criteria.Day {
			return false
		}
	}

	if len(m.agencies) > 0 && !m.hasAgency(link) {
		return false
	}

	return true
}

func (m *matcher) hasAgency(link Link) bool {
	for _, name := range link.AgencyNames {
		if _, ok := m.agencies[CanonicalAgency(name)]; ok {
			return true
		}
	}
	return false
}
