package locator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/listing-comb/app/crawl"
)

const (
	suggestPath     = "/s-ort-empfehlungen.json"
	defaultCategory = "immobilien"
	categoryCode    = "195"
)

var ErrNoLocation = errors.New("no location found")

// Filters are the optional path segments of a generated search URL.
type Filters struct {
	Kategorie   string `json:"kategorie,omitempty"`
	Anbieter    string `json:"anbieter,omitempty"`
	Anzeige     string `json:"anzeige,omitempty"`
	Preis       string `json:"preis,omitempty"`
	Suchbegriff string `json:"suchbegriff,omitempty"`
}

// Locator resolves postal codes or place names to location ids and builds
// search URLs for them.
type Locator struct {
	fetcher crawl.Fetcher
	siteURL string
	limiter *rate.Limiter
}

func NewLocator(fetcher crawl.Fetcher, siteURL string, pause time.Duration) *Locator {
	limit := rate.Inf
	if pause > 0 {
		limit = rate.Every(pause)
	}

	return &Locator{
		fetcher: fetcher,
		siteURL: strings.TrimRight(siteURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// LocationID asks the suggestion endpoint for query and returns the first
// suggested id, skipping the "_0" catch-all entry.
func (l *Locator) LocationID(ctx context.Context, query string) (string, error) {
	endpoint := l.siteURL + suggestPath + "?query=" + url.QueryEscape(query)

	body, _, err := l.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to fetch location suggestions: %w", err)
	}

	keys, err := objectKeys(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse location suggestions: %w", err)
	}

	for _, key := range keys {
		if key == "_0" {
			continue
		}
		id := strings.TrimPrefix(key, "_")
		slog.Debug("Location resolved", "query", query, "id", id)
		return id, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNoLocation, query)
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// SearchURL builds the result-page URL for a location.
func (l *Locator) SearchURL(plz string, filters Filters, locationID string) string {
	category := filters.Kategorie
	if category == "" {
		category = defaultCategory
	}

	parts := []string{"s-" + category, plz}
	if filters.Anbieter != "" {
		parts = append(parts, "anbieter:"+filters.Anbieter)
	}
	if filters.Anzeige != "" {
		parts = append(parts, "anzeige:"+filters.Anzeige)
	}
	if filters.Preis != "" {
		parts = append(parts, "preis:"+filters.Preis+":")
	}
	if filters.Suchbegriff != "" {
		parts = append(parts, filters.Suchbegriff)
	}
	parts = append(parts, "k0c"+categoryCode+"l"+locationID)

	return l.siteURL + "/" + strings.Join(parts, "/")
}

// FindURLs resolves every entry of plzs and returns entry -> search URL.
// Entries that cannot be resolved are logged and left out.
func (l *Locator) FindURLs(ctx context.Context, plzs []string, filters Filters) (map[string]string, error) {
	results := make(map[string]string)

	for _, plz := range plzs {
		plz = strings.TrimSpace(plz)
		if plz == "" {
			slog.Warn("Skipping empty location")
			continue
		}

		if err := l.limiter.Wait(ctx); err != nil {
			return results, err
		}

		id, err := l.LocationID(ctx, plz)
		if err != nil {
			slog.Warn("Failed to resolve location", "query", plz, "error", err)
			continue
		}

		results[plz] = l.SearchURL(plz, filters, id)
		slog.Info("Search URL generated", "query", plz, "url", results[plz])
	}

	return results, nil
}
