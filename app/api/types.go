package api

import (
	"context"

	"github.com/lysyi3m/listing-comb/app/agency"
	"github.com/lysyi3m/listing-comb/app/locator"
	"github.com/lysyi3m/listing-comb/app/tasks"
)

type LocatorInterface interface {
	FindURLs(ctx context.Context, plzs []string, filters locator.Filters) (map[string]string, error)
}

var _ LocatorInterface = (*locator.Locator)(nil)

type Handler struct {
	service   ServiceInterface
	registry  *agency.Registry
	locator   LocatorInterface
	scheduler tasks.TaskSchedulerInterface
}

type SearchRequest struct {
	SearchStrings []string `json:"search_strings" binding:"required"`
}

type AgencySearchRequest struct {
	AgencyNames []string `json:"makler_names" binding:"required"`
}

type AddLinkRequest struct {
	Link string `json:"link" binding:"required"`
}

type GenerateURLsRequest struct {
	PLZList      []string        `json:"plz_list" binding:"required"`
	Filters      locator.Filters `json:"filters"`
	ReferenceURL string          `json:"reference_url"`
}

// filterQuery is the query string shared by listing, deletion and export.
type filterQuery struct {
	AgencyNames    string `form:"makler_names"`
	Year           int    `form:"year"`
	Month          int    `form:"month"`
	Day            int    `form:"day"`
	LastSearchOnly bool   `form:"last_search_only"`
	Format         string `form:"format"`
}
