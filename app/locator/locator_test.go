package locator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lysyi3m/listing-comb/app/crawl"
)

func newSuggestServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != suggestPath {
			http.NotFound(w, r)
			return
		}
		body, ok := responses[r.URL.Query().Get("query")]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestLocator(siteURL string) *Locator {
	return NewLocator(crawl.NewHTTPFetcher(5*time.Second, "test-agent"), siteURL, 0)
}

func TestLocationID(t *testing.T) {
	server := newSuggestServer(t, map[string]string{
		"10115":   `{"_0":"Berlin (alle)","_3331":"10115 Berlin","_3332":"10117 Berlin"}`,
		"München": `{"_6411":"München"}`,
		"nowhere": `{"_0":"Deutschland"}`,
		"broken":  `["not","an","object"]`,
	})
	locator := newTestLocator(server.URL)

	tests := []struct {
		query   string
		want    string
		wantErr error
	}{
		{"10115", "3331", nil},
		{"München", "6411", nil},
		{"nowhere", "", ErrNoLocation},
		{"broken", "", nil},
		{"unknown", "", crawl.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := locator.LocationID(context.Background(), tt.query)
			if tt.want != "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("Expected id %s, got %s", tt.want, got)
				}
				return
			}

			if err == nil {
				t.Fatalf("Expected error, got id %s", got)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSearchURL(t *testing.T) {
	locator := newTestLocator("https://www.kleinanzeigen.de/")

	tests := []struct {
		name    string
		filters Filters
		want    string
	}{
		{
			name:    "defaults",
			filters: Filters{},
			want:    "https://www.kleinanzeigen.de/s-immobilien/10115/k0c195l3331",
		},
		{
			name: "all filters",
			filters: Filters{
				Kategorie:   "wohnung-mieten",
				Anbieter:    "gewerblich",
				Anzeige:     "angebote",
				Preis:       "500",
				Suchbegriff: "balkon",
			},
			want: "https://www.kleinanzeigen.de/s-wohnung-mieten/10115/anbieter:gewerblich/anzeige:angebote/preis:500:/balkon/k0c195l3331",
		},
		{
			name:    "price only",
			filters: Filters{Preis: ":1200"},
			want:    "https://www.kleinanzeigen.de/s-immobilien/10115/preis::1200:/k0c195l3331",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := locator.SearchURL("10115", tt.filters, "3331")
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFindURLs(t *testing.T) {
	server := newSuggestServer(t, map[string]string{
		"10115": `{"_0":"Berlin","_3331":"10115 Berlin"}`,
		"20095": `{"_9409":"20095 Hamburg"}`,
	})
	locator := newTestLocator(server.URL)

	results, err := locator.FindURLs(context.Background(), []string{" 10115 ", "", "99999", "20095"}, Filters{})
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d: %v", len(results), results)
	}
	if results["10115"] != server.URL+"/s-immobilien/10115/k0c195l3331" {
		t.Errorf("Unexpected URL for 10115: %s", results["10115"])
	}
	if results["20095"] != server.URL+"/s-immobilien/20095/k0c195l9409" {
		t.Errorf("Unexpected URL for 20095: %s", results["20095"])
	}
	if _, ok := results["99999"]; ok {
		t.Error("Expected unresolvable location to be left out")
	}
}

func TestFindURLs_Pauses(t *testing.T) {
	server := newSuggestServer(t, map[string]string{
		"a": `{"_1":"A"}`,
		"b": `{"_2":"B"}`,
		"c": `{"_3":"C"}`,
	})
	locator := NewLocator(crawl.NewHTTPFetcher(5*time.Second, "test-agent"), server.URL, 50*time.Millisecond)

	start := time.Now()
	if _, err := locator.FindURLs(context.Background(), []string{"a", "b", "c"}, Filters{}); err != nil {
		t.Fatal(err)
	}

	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Expected lookups to be spaced out, took %v", elapsed)
	}
}

func TestFindURLs_Cancelled(t *testing.T) {
	server := newSuggestServer(t, map[string]string{"a": `{"_1":"A"}`})
	locator := newTestLocator(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := locator.FindURLs(ctx, []string{"a"}, Filters{}); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
