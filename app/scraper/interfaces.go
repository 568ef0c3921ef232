package scraper

import (
	"context"

	"github.com/lysyi3m/listing-comb/app/agency"
	"github.com/lysyi3m/listing-comb/app/crawl"
	"github.com/lysyi3m/listing-comb/app/feed"
	"github.com/lysyi3m/listing-comb/app/links"
)

type CrawlerInterface interface {
	Run(ctx context.Context, queries []crawl.Query) *crawl.BatchResult
}

type GeneratorInterface interface {
	Run(title, feedPath string, items []links.Link) (string, error)
}

type RegistryInterface interface {
	QueriesFor(names []string) []crawl.Query
	Names() []string
}

var (
	_ CrawlerInterface   = (*crawl.Orchestrator)(nil)
	_ GeneratorInterface = (*feed.Generator)(nil)
	_ RegistryInterface  = (*agency.Registry)(nil)
)
