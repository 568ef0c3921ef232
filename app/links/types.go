package links

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/listing-comb/app/database"
)

var (
	ErrPersistence = errors.New("failed to persist links")
	ErrValidation  = errors.New("invalid filter criteria")
)

// Unattributed is the group name for links that no agency search found.
const Unattributed = "Sonstige"

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

type Link struct {
	URL         string   `json:"url"`
	ScrapedAt   string   `json:"scraped_at"`
	AgencyNames []string `json:"makler_names"`
}

// Time parses ScrapedAt. Naive timestamps keep their wall clock fields.
func (l Link) Time() (time.Time, bool) {
	t, err := ParseTimestamp(l.ScrapedAt)
	return t, err == nil
}

func (l Link) clone() Link {
	l.AgencyNames = slices.Clone(l.AgencyNames)
	if l.AgencyNames == nil {
		l.AgencyNames = []string{}
	}
	return l
}

func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", value)
}

// FormatTimestamp renders value as dd.mm.yyyy hh:mm:ss, or returns it
// unchanged when it cannot be parsed.
func FormatTimestamp(value string) string {
	if value == "" {
		return ""
	}
	t, err := ParseTimestamp(value)
	if err != nil {
		return value
	}
	return t.Format("02.01.2006 15:04:05")
}

// CanonicalAgency trims an agency name and brings it to Unicode NFC so that
// visually identical names compare equal.
func CanonicalAgency(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func toRecord(l Link) database.LinkRecord {
	return database.LinkRecord{
		URL:         l.URL,
		ScrapedAt:   l.ScrapedAt,
		AgencyNames: slices.Clone(l.AgencyNames),
	}
}

func fromRecord(r database.LinkRecord) Link {
	return Link{
		URL:         r.URL,
		ScrapedAt:   r.ScrapedAt,
		AgencyNames: slices.Clone(r.AgencyNames),
	}.clone()
}

type MergeResult struct {
	NewLinks []string `json:"new_links"`
	Total    int      `json:"total_links"`
}
