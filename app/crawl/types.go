package crawl

import (
	"context"
	"errors"

	"github.com/lysyi3m/listing-comb/app/listing"
)

// ErrTransport marks a page that could not be fetched: network failure,
// timeout or an HTTP error status. It ends pagination of the query.
var ErrTransport = errors.New("transport failure")

// Query is one saved search, optionally attributed to an agency.
type Query struct {
	URL    string
	Agency string
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, status int, err error)
}

// FetcherFactory builds an isolated Fetcher for a single query task.
type FetcherFactory func() Fetcher

type PageExtractor interface {
	Run(data []byte, baseURL string) (listing.Set, error)
}

type PageKind int

const (
	PageOK PageKind = iota
	PageTransportError
	PageParseError
)

func (k PageKind) String() string {
	switch k {
	case PageOK:
		return "ok"
	case PageTransportError:
		return "transport_error"
	case PageParseError:
		return "parse_error"
	}
	return "unknown"
}

type PageResult struct {
	Page  int
	URL   string
	Links listing.Set
	Kind  PageKind
	Err   error
}

// QueryResult holds everything one paginated search produced. Links keeps the
// pages collected before a transport failure; Err reports why the query
// stopped early, if it did.
type QueryResult struct {
	Query Query
	Links listing.Set
	Pages []PageResult
	Err   error
}

// Batch maps each discovered URL to the agencies whose searches found it.
// URLs found by unattributed searches carry an empty set.
type Batch map[string]map[string]struct{}

func (b Batch) Add(url, agency string) {
	agencies, ok := b[url]
	if !ok {
		agencies = make(map[string]struct{})
		b[url] = agencies
	}
	if agency != "" {
		agencies[agency] = struct{}{}
	}
}

type QueryFailure struct {
	URL    string `json:"url"`
	Agency string `json:"makler,omitempty"`
	Error  string `json:"error"`
}

type BatchResult struct {
	Links   Batch
	Queries int
	Failed  []QueryFailure
}
