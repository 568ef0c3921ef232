package links

import (
	"errors"
	"slices"
	"testing"

	"github.com/lysyi3m/listing-comb/app/database"
)

func seededStore(t *testing.T) *Store {
	t.Helper()

	repo := &memoryRepository{snapshot: &database.Snapshot{
		Links: []database.LinkRecord{
			{URL: "u1", ScrapedAt: "2025-06-01T09:00:00.000000", AgencyNames: []string{"Alpha"}},
			{URL: "u2", ScrapedAt: "2025-06-02T09:00:00.000000", AgencyNames: []string{"Beta"}},
			{URL: "u3", ScrapedAt: "2025-07-01T09:00:00.000000", AgencyNames: []string{"Alpha", "Beta"}},
			{URL: "u4", ScrapedAt: "2024-06-01T09:00:00", AgencyNames: []string{}},
			{URL: "u5", ScrapedAt: "kaputt", AgencyNames: []string{"Alpha"}},
		},
	}}
	return newTestStore(t, repo)
}

func urlsOf(links []Link) []string {
	urls := make([]string, len(links))
	for i, link := range links {
		urls[i] = link.URL
	}
	return urls
}

func TestCriteria_Validate(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		valid    bool
	}{
		{"empty", Criteria{}, true},
		{"full date", Criteria{Year: 2025, Month: 2, Day: 31}, true},
		{"month only", Criteria{Month: 12}, true},
		{"month zero means unset", Criteria{Year: 2025}, true},
		{"month too large", Criteria{Month: 13}, false},
		{"negative month", Criteria{Month: -1}, false},
		{"day too large", Criteria{Month: 1, Day: 32}, false},
		{"day without month", Criteria{Year: 2025, Day: 3}, true},
		{"day only", Criteria{Day: 15}, true},
		{"year too large", Criteria{Year: 10000}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid criteria, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestParseAgencyList(t *testing.T) {
	got := ParseAgencyList(" Alpha , ,Beta Immobilien,")
	if !slices.Equal(got, []string{"Alpha", "Beta Immobilien"}) {
		t.Errorf("Unexpected agency list: %v", got)
	}
	if ParseAgencyList("") != nil {
		t.Error("Expected nil for empty list")
	}
}

func TestStore_Filter(t *testing.T) {
	store := seededStore(t)

	tests := []struct {
		name     string
		criteria Criteria
		expected []string
	}{
		{"no criteria", Criteria{}, []string{"u1", "u2", "u3", "u4", "u5"}},
		{"year and month", Criteria{Year: 2025, Month: 6}, []string{"u1", "u2"}},
		{"month across years", Criteria{Month: 6}, []string{"u1", "u2", "u4"}},
		{"day", Criteria{Year: 2025, Month: 6, Day: 2}, []string{"u2"}},
		{"day across months", Criteria{Day: 1}, []string{"u1", "u3", "u4"}},
		{"year and day", Criteria{Year: 2025, Day: 1}, []string{"u1", "u3"}},
		{"agency", Criteria{Agencies: []string{"Alpha"}}, []string{"u1", "u3", "u5"}},
		{"agency trimmed", Criteria{Agencies: []string{"  Beta "}}, []string{"u2", "u3"}},
		{"agency case sensitive", Criteria{Agencies: []string{"alpha"}}, []string{}},
		{"agency and date", Criteria{Agencies: []string{"Alpha"}, Year: 2025, Month: 7}, []string{"u3"}},
		{"unreadable timestamp excluded by date", Criteria{Year: 2025}, []string{"u1", "u2", "u3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Filter(tt.criteria)
			if err != nil {
				t.Fatalf("Filter failed: %v", err)
			}
			if !slices.Equal(urlsOf(got), tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, urlsOf(got))
			}
		})
	}
}

func TestStore_Filter_Composition(t *testing.T) {
	store := seededStore(t)

	combined := Criteria{Agencies: []string{"Alpha"}, Year: 2025, Month: 6}
	got, err := store.Filter(combined)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}

	byAgency, _ := store.Filter(Criteria{Agencies: combined.Agencies})
	byDate, _ := store.Filter(Criteria{Year: combined.Year, Month: combined.Month})

	var intersection []string
	for _, url := range urlsOf(byAgency) {
		if slices.Contains(urlsOf(byDate), url) {
			intersection = append(intersection, url)
		}
	}

	if !slices.Equal(urlsOf(got), intersection) {
		t.Errorf("Expected combined filter %v to equal intersection %v", urlsOf(got), intersection)
	}
}

func TestStore_Filter_LastBatchOnly(t *testing.T) {
	store := seededStore(t)

	store.Merge(batchOf(map[string][]string{"u6": {"Alpha"}, "u1": {"Alpha"}}))

	got, err := store.Filter(Criteria{LastBatchOnly: true})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if !slices.Equal(urlsOf(got), []string{"u6"}) {
		t.Errorf("Expected only the new link, got %v", urlsOf(got))
	}
}

func TestStore_Filter_ReturnsCopies(t *testing.T) {
	store := seededStore(t)

	got, _ := store.Filter(Criteria{})
	got[0].AgencyNames[0] = "Mutated"

	again, _ := store.Filter(Criteria{})
	if again[0].AgencyNames[0] != "Alpha" {
		t.Error("Expected Filter results not to alias stored links")
	}
}

func TestStore_Group(t *testing.T) {
	store := seededStore(t)

	groups, err := store.Group(Criteria{})
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}

	if !slices.Equal(groups.Names(), []string{"Alpha", "Beta", Unattributed}) {
		t.Errorf("Unexpected group names: %v", groups.Names())
	}
	if !slices.Equal(urlsOf(groups["Alpha"]), []string{"u1", "u3", "u5"}) {
		t.Errorf("Unexpected Alpha group: %v", urlsOf(groups["Alpha"]))
	}
	if !slices.Equal(urlsOf(groups[Unattributed]), []string{"u4"}) {
		t.Errorf("Unexpected unattributed group: %v", urlsOf(groups[Unattributed]))
	}
	if groups.Count() != 6 {
		t.Errorf("Expected multi-agency link to be counted per group, got %d", groups.Count())
	}
}

func TestStore_Group_WithAgencyFilter(t *testing.T) {
	store := seededStore(t)

	groups, err := store.Group(Criteria{Agencies: []string{"Beta"}})
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}

	if !slices.Equal(groups.Names(), []string{"Beta"}) {
		t.Errorf("Expected only the filtered agency, got %v", groups.Names())
	}
	if !slices.Equal(urlsOf(groups["Beta"]), []string{"u2", "u3"}) {
		t.Errorf("Unexpected Beta group: %v", urlsOf(groups["Beta"]))
	}
}

func TestCanonicalAgency(t *testing.T) {
	decomposed := "Mu\u0308ller"
	composed := "M\u00fcller"

	if decomposed == composed {
		t.Fatal("Test input must differ in normalization form")
	}
	if got := CanonicalAgency("  " + decomposed + " "); got != composed {
		t.Errorf("Expected decomposed name to normalize to %q, got %q", composed, got)
	}
}

func TestLink_Time(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"2025-06-15T14:30:00.123456", true},
		{"2025-06-15T14:30:00", true},
		{"2025-06-15T14:30:00+02:00", true},
		{"2025-06-15T14:30:00Z", true},
		{"2025-06-15 14:30:00", true},
		{"2025-06-15", true},
		{"15.06.2025", false},
		{"", false},
	}

	for _, tt := range tests {
		_, ok := Link{ScrapedAt: tt.value}.Time()
		if ok != tt.ok {
			t.Errorf("Time(%q): expected ok=%v, got %v", tt.value, tt.ok, ok)
		}
	}
}
