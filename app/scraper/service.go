package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lysyi3m/listing-comb/app/crawl"
	"github.com/lysyi3m/listing-comb/app/links"
)

var ErrBusy = errors.New("a crawl is already running")

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", links.ErrValidation, value)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

type CrawlResult struct {
	Success       bool                 `json:"success"`
	NewLinks      []string             `json:"new_links"`
	TotalLinks    int                  `json:"total_links"`
	Message       string               `json:"message"`
	Queries       int                  `json:"queries"`
	FailedQueries []crawl.QueryFailure `json:"failed_queries"`
}

// Service is the single entry point for crawling and querying stored links.
// Crawls are serialized so that each one sees the blacklist left by the last.
type Service struct {
	crawler   CrawlerInterface
	store     *links.Store
	registry  RegistryInterface
	generator GeneratorInterface
	crawlMu   sync.Mutex
}

func NewService(crawler CrawlerInterface, store *links.Store, registry RegistryInterface, generator GeneratorInterface) *Service {
	return &Service{
		crawler:   crawler,
		store:     store,
		registry:  registry,
		generator: generator,
	}
}

// Crawl runs the given search URLs without agency attribution.
func (s *Service) Crawl(ctx context.Context, searchURLs []string) (*CrawlResult, error) {
	queries := make([]crawl.Query, 0, len(searchURLs))
	for _, u := range searchURLs {
		if u == "" {
			continue
		}
		queries = append(queries, crawl.Query{URL: u})
	}

	result, err := s.run(ctx, queries)
	if err != nil {
		return nil, err
	}
	result.Message = fmt.Sprintf("%d neue Anzeigen gefunden", len(result.NewLinks))
	return result, nil
}

// CrawlAgencies runs every saved search of the named agencies and attributes
// the results to them.
func (s *Service) CrawlAgencies(ctx context.Context, names []string) (*CrawlResult, error) {
	queries := s.registry.QueriesFor(names)
	if len(queries) == 0 {
		return &CrawlResult{
			Success:       false,
			NewLinks:      []string{},
			TotalLinks:    s.store.Count(),
			Message:       "Keine Links für die angegebenen Makler gefunden",
			FailedQueries: []crawl.QueryFailure{},
		}, nil
	}

	result, err := s.run(ctx, queries)
	if err != nil {
		return nil, err
	}
	result.Message = fmt.Sprintf("%d neue Anzeigen gefunden für %d Makler", len(result.NewLinks), len(names))
	return result, nil
}

// CrawlAllAgencies crawls every registered agency.
func (s *Service) CrawlAllAgencies(ctx context.Context) (*CrawlResult, error) {
	return s.CrawlAgencies(ctx, s.registry.Names())
}

func (s *Service) run(ctx context.Context, queries []crawl.Query) (*CrawlResult, error) {
	if !s.crawlMu.TryLock() {
		return nil, ErrBusy
	}
	defer s.crawlMu.Unlock()

	slog.Info("Crawl started", "queries", len(queries))

	batch := s.crawler.Run(ctx, queries)

	merged, err := s.store.Merge(batch.Links)
	if err != nil {
		return nil, fmt.Errorf("failed to merge batch: %w", err)
	}

	failed := batch.Failed
	if failed == nil {
		failed = []crawl.QueryFailure{}
	}

	return &CrawlResult{
		Success:       true,
		NewLinks:      merged.NewLinks,
		TotalLinks:    merged.Total,
		Queries:       batch.Queries,
		FailedQueries: failed,
	}, nil
}

// URLs returns every stored URL in insertion order.
func (s *Service) URLs() []string {
	all, _ := s.store.Filter(links.Criteria{})
	urls := make([]string, 0, len(all))
	for _, link := range all {
		urls = append(urls, link.URL)
	}
	return urls
}

func (s *Service) List(c links.Criteria) ([]links.Link, error) {
	return s.store.Filter(c)
}

func (s *Service) Group(c links.Criteria) (links.Groups, error) {
	return s.store.Group(c)
}

func (s *Service) Delete(c links.Criteria) (int, error) {
	return s.store.Delete(c)
}

func (s *Service) ClearBlacklist() error {
	return s.store.ClearBlacklist()
}

func (s *Service) Total() int {
	return s.store.Count()
}

func (s *Service) BlacklistSize() int {
	return s.store.BlacklistSize()
}

// Export renders the links matching c in the requested format.
func (s *Service) Export(c links.Criteria, format Format) ([]byte, error) {
	selected, err := s.store.Filter(c)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		err = links.WriteXLSX(&buf, selected)
	default:
		err = links.WriteCSV(&buf, selected)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to export links: %w", err)
	}

	slog.Debug("Links exported", "format", string(format), "count", len(selected))
	return buf.Bytes(), nil
}

// Feed renders the links matching c as RSS. Callers usually restrict c to
// the last batch.
func (s *Service) Feed(c links.Criteria, title, feedPath string) (string, int, error) {
	selected, err := s.store.Filter(c)
	if err != nil {
		return "", 0, err
	}

	rss, err := s.generator.Run(title, feedPath, selected)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate feed: %w", err)
	}
	return rss, len(selected), nil
}
