package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/listing-comb/app/scraper"
)

type CrawlAgenciesTask struct {
	Task
	Names   []string
	All     bool
	crawler AgencyCrawler
}

// NewCrawlAgenciesTask crawls the saved searches of the named agencies.
// An empty list crawls nothing.
func NewCrawlAgenciesTask(crawler AgencyCrawler, names []string) *CrawlAgenciesTask {
	return &CrawlAgenciesTask{
		Task:    NewTask(TaskTypeCrawlAgencies, strings.Join(names, ",")),
		Names:   names,
		crawler: crawler,
	}
}

// NewCrawlAllAgenciesTask crawls every registered agency.
func NewCrawlAllAgenciesTask(crawler AgencyCrawler) *CrawlAgenciesTask {
	return &CrawlAgenciesTask{
		Task:    NewTask(TaskTypeCrawlAgencies, "all"),
		All:     true,
		crawler: crawler,
	}
}

func (t *CrawlAgenciesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var result *scraper.CrawlResult
	var err error
	if t.All {
		result, err = t.crawler.CrawlAllAgencies(ctx)
	} else {
		result, err = t.crawler.CrawlAgencies(ctx, t.Names)
	}
	if err != nil {
		return fmt.Errorf("failed to crawl makler: %w", err)
	}

	slog.Info("Makler crawl completed",
		"target", t.Target,
		"success", result.Success,
		"new", len(result.NewLinks),
		"total", result.TotalLinks,
		"failed_queries", len(result.FailedQueries),
		"duration", t.GetDuration().String())

	return nil
}
