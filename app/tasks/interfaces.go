package tasks

import (
	"context"

	"github.com/lysyi3m/listing-comb/app/scraper"
)

// TaskSchedulerInterface is used by main and the API to run crawls in the
// background.
//
//	scheduler := NewScheduler(service)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewCrawlAgenciesTask(service, names))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type AgencyCrawler interface {
	CrawlAgencies(ctx context.Context, names []string) (*scraper.CrawlResult, error)
	CrawlAllAgencies(ctx context.Context) (*scraper.CrawlResult, error)
}

var _ AgencyCrawler = (*scraper.Service)(nil)
