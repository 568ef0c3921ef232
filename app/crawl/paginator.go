package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/listing-comb/app/listing"
)

const pageParam = "seite"

// Paginator walks the result pages of one search until a page comes back
// empty, the page limit is reached or a page cannot be fetched.
type Paginator struct {
	fetcher   Fetcher
	extractor PageExtractor
	limiter   *rate.Limiter
	siteURL   string
	maxPages  int
}

func NewPaginator(fetcher Fetcher, extractor PageExtractor, siteURL string, maxPages int, delay time.Duration) *Paginator {
	return &Paginator{
		fetcher:   fetcher,
		extractor: extractor,
		limiter:   newPolitenessLimiter(delay),
		siteURL:   siteURL,
		maxPages:  maxPages,
	}
}

func newPolitenessLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func (p *Paginator) Run(ctx context.Context, query Query) QueryResult {
	result := QueryResult{
		Query: query,
		Links: make(listing.Set),
	}

	if !strings.HasPrefix(query.URL, "http") {
		slog.Warn("Search is not a complete URL, skipping", "query", query.URL)
		result.Err = fmt.Errorf("invalid search URL %q: must start with http", query.URL)
		return result
	}

	slog.Info("Starting search", "query", query.URL, "makler", query.Agency)

	for page := 1; page <= p.maxPages; page++ {
		if err := p.limiter.Wait(ctx); err != nil {
			result.Err = fmt.Errorf("search cancelled before page %d: %w", page, err)
			break
		}

		pageResult := p.fetchPage(ctx, query.URL, page)
		result.Pages = append(result.Pages, pageResult)

		switch pageResult.Kind {
		case PageTransportError:
			slog.Error("Failed to load page", "query", query.URL, "page", page, "error", pageResult.Err)
			result.Err = pageResult.Err
			return result
		case PageParseError:
			slog.Error("Failed to extract page", "query", query.URL, "page", page, "error", pageResult.Err)
			continue
		}

		if len(pageResult.Links) == 0 {
			slog.Info("No more links, search finished", "query", query.URL, "page", page)
			break
		}

		for u := range pageResult.Links {
			result.Links.Add(u)
		}
		slog.Info("Page loaded", "query", query.URL, "page", page, "links", len(pageResult.Links))
	}

	return result
}

func (p *Paginator) fetchPage(ctx context.Context, searchURL string, page int) PageResult {
	pageURL := searchURL
	if page > 1 {
		next, err := NextPageURL(searchURL, page)
		if err != nil {
			return PageResult{Page: page, URL: searchURL, Kind: PageTransportError, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
		}
		pageURL = next
	}

	result := PageResult{Page: page, URL: pageURL}

	body, _, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		result.Kind = PageTransportError
		if !errors.Is(err, ErrTransport) {
			err = fmt.Errorf("%w: %v", ErrTransport, err)
		}
		result.Err = err
		return result
	}

	links, err := p.extractor.Run(body, p.siteURL)
	if err != nil {
		result.Kind = PageParseError
		if !errors.Is(err, listing.ErrParse) {
			err = fmt.Errorf("%w: %v", listing.ErrParse, err)
		}
		result.Err = err
		return result
	}

	result.Kind = PageOK
	result.Links = links
	return result
}

// NextPageURL returns the address of result page n: every query parameter
// whose key starts with "seite" is replaced by seite=n, everything else in
// the URL is preserved.
func NextPageURL(searchURL string, n int) (string, error) {
	u, err := url.Parse(searchURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse search URL: %w", err)
	}

	params := u.Query()
	for key := range params {
		if strings.HasPrefix(key, pageParam) {
			params.Del(key)
		}
	}
	params.Set(pageParam, strconv.Itoa(n))

	u.RawQuery = params.Encode()
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}
