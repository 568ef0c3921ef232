package api

import (
	"context"

	"github.com/lysyi3m/listing-comb/app/links"
	"github.com/lysyi3m/listing-comb/app/scraper"
	"github.com/lysyi3m/listing-comb/app/tasks"
)

type ServiceInterface interface {
	tasks.AgencyCrawler
	Crawl(ctx context.Context, searchURLs []string) (*scraper.CrawlResult, error)
	URLs() []string
	Group(c links.Criteria) (links.Groups, error)
	Delete(c links.Criteria) (int, error)
	ClearBlacklist() error
	Total() int
	BlacklistSize() int
	Export(c links.Criteria, format scraper.Format) ([]byte, error)
	Feed(c links.Criteria, title, feedPath string) (string, int, error)
}

var _ ServiceInterface = (*scraper.Service)(nil)
