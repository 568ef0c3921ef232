package crawl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Options struct {
	Workers  int
	MaxPages int
	Delay    time.Duration
	SiteURL  string
}

// Orchestrator runs one Paginator per query with bounded concurrency and
// merges their results into a single batch.
type Orchestrator struct {
	newFetcher FetcherFactory
	extractor  PageExtractor
	opts       Options
}

func NewOrchestrator(newFetcher FetcherFactory, extractor PageExtractor, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}

	return &Orchestrator{
		newFetcher: newFetcher,
		extractor:  extractor,
		opts:       opts,
	}
}

// Run crawls every query and returns the merged batch. A failing query never
// affects its siblings; failures are logged and listed in the result.
func (o *Orchestrator) Run(ctx context.Context, queries []Query) *BatchResult {
	result := &BatchResult{
		Links:   make(Batch),
		Queries: len(queries),
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.opts.Workers)

	slog.Info("Starting crawl", "queries", len(queries), "workers", o.opts.Workers)

	for _, query := range queries {
		g.Go(func() error {
			queryResult := o.runQuery(ctx, query)

			mu.Lock()
			defer mu.Unlock()

			for u := range queryResult.Links {
				result.Links.Add(u, query.Agency)
			}

			if queryResult.Err != nil {
				result.Failed = append(result.Failed, QueryFailure{
					URL:    query.URL,
					Agency: query.Agency,
					Error:  queryResult.Err.Error(),
				})
			}
			return nil
		})
	}

	// Tasks never return errors.
	_ = g.Wait()

	slog.Info("Crawl finished", "queries", len(queries), "links", len(result.Links), "failed", len(result.Failed))

	return result
}

func (o *Orchestrator) runQuery(ctx context.Context, query Query) QueryResult {
	fetcher := o.newFetcher()
	if closer, ok := fetcher.(io.Closer); ok {
		defer closer.Close()
	}

	paginator := NewPaginator(fetcher, o.extractor, o.opts.SiteURL, o.opts.MaxPages, o.opts.Delay)
	return paginator.Run(ctx, query)
}
