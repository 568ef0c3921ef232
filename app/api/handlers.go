package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/listing-comb/app/agency"
	"github.com/lysyi3m/listing-comb/app/cfg"
	"github.com/lysyi3m/listing-comb/app/links"
	"github.com/lysyi3m/listing-comb/app/scraper"
	"github.com/lysyi3m/listing-comb/app/tasks"
)

func NewHandler(service ServiceInterface, registry *agency.Registry, locator LocatorInterface,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		service:   service,
		registry:  registry,
		locator:   locator,
		scheduler: scheduler,
	}
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, links.ErrValidation), errors.Is(err, agency.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, agency.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scraper.ErrBusy):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}

	c.JSON(status, gin.H{"detail": err.Error()})
}

func bindCriteria(c *gin.Context) (filterQuery, links.Criteria, bool) {
	var query filterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid query: %v", err)})
		return query, links.Criteria{}, false
	}

	criteria := links.Criteria{
		Agencies:      links.ParseAgencyList(query.AgencyNames),
		Year:          query.Year,
		Month:         query.Month,
		Day:           query.Day,
		LastBatchOnly: query.LastSearchOnly,
	}
	if err := criteria.Validate(); err != nil {
		respondError(c, err)
		return query, criteria, false
	}

	return query, criteria, true
}

func (h *Handler) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Kleinanzeigen Scraper API",
		"version": cfg.GetVersion(),
		"endpoints": map[string]string{
			"search":        "POST /search",
			"search_makler": "POST /search/makler",
			"links":         "GET /links",
			"grouped":       "GET /links/grouped",
			"makler":        "GET /makler",
			"generate_urls": "POST /generate-urls",
			"export":        "GET /export/{last,all,filtered}",
			"feed":          "GET /feed/last",
			"health":        "GET /health",
		},
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"links":     h.service.Total(),
		"blacklist": h.service.BlacklistSize(),
		"makler":    h.registry.Count(),
	})
}

func (h *Handler) PostSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	result, err := h.service.Crawl(c.Request.Context(), req.SearchStrings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) PostSearchAgencies(c *gin.Context) {
	var req AgencySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	names := slices.DeleteFunc(slices.Clone(req.AgencyNames), func(name string) bool {
		return strings.TrimSpace(name) == ""
	})
	if len(names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "makler_names must name at least one agency"})
		return
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		task := tasks.NewCrawlAgenciesTask(h.service, names)
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Error("Error enqueueing crawl task", "target", task.GetTarget(), "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": fmt.Sprintf("failed to enqueue crawl: %v", err)})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"message": fmt.Sprintf("Suche für %d Makler gestartet", len(names)),
			"task": gin.H{
				"id":   task.GetID(),
				"type": task.GetType(),
			},
		})
		return
	}

	result, err := h.service.CrawlAgencies(c.Request.Context(), names)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetLinks(c *gin.Context) {
	urls := h.service.URLs()
	c.JSON(http.StatusOK, gin.H{
		"links": urls,
		"count": len(urls),
	})
}

func (h *Handler) GetLinksGrouped(c *gin.Context) {
	_, criteria, ok := bindCriteria(c)
	if !ok {
		return
	}

	groups, err := h.service.Group(criteria)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"grouped":        groups,
		"makler_names":   groups.Names(),
		"total_count":    h.service.Total(),
		"filtered_count": groups.Count(),
	})
}

func (h *Handler) DeleteLinks(c *gin.Context) {
	_, criteria, ok := bindCriteria(c)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(criteria)
	if err != nil {
		respondError(c, err)
		return
	}

	message := fmt.Sprintf("%d Links wurden gelöscht", deleted)
	if criteria.IsEmpty() {
		message = "Alle Links wurden gelöscht"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       message,
		"deleted_count": deleted,
	})
}

func (h *Handler) DeleteBlacklist(c *gin.Context) {
	if err := h.service.ClearBlacklist(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Blacklist wurde geleert"})
}

func (h *Handler) GetAgencies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"makler": h.registry.List()})
}

func (h *Handler) PostAgency(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Parameter 'name' fehlt"})
		return
	}

	added, err := h.registry.Add(name)
	if errors.Is(err, agency.ErrExists) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Makler '%s' existiert bereits", name)})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Makler '%s' wurde hinzugefügt", added.Name),
		"makler":  added,
	})
}

func (h *Handler) DeleteAgency(c *gin.Context) {
	name := c.Param("name")

	err := h.registry.Delete(name)
	if errors.Is(err, agency.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Makler '%s' nicht gefunden", name)})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Makler '%s' wurde gelöscht", name)})
}

func (h *Handler) PostAgencyLink(c *gin.Context) {
	name := c.Param("name")

	var req AddLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	updated, err := h.registry.AddLink(name, strings.TrimSpace(req.Link))
	if errors.Is(err, agency.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Makler '%s' nicht gefunden", name)})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Link zu Makler '%s' hinzugefügt", name),
		"makler":  updated,
	})
}

func (h *Handler) DeleteAgencyLink(c *gin.Context) {
	name := c.Param("name")
	link := c.Query("link")
	if link == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Parameter 'link' fehlt"})
		return
	}

	updated, err := h.registry.RemoveLink(name, link)
	if errors.Is(err, agency.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Makler '%s' nicht gefunden oder Link nicht vorhanden", name)})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Link von Makler '%s' entfernt", name),
		"makler":  updated,
	})
}

func (h *Handler) PostGenerateURLs(c *gin.Context) {
	var req GenerateURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	results, err := h.locator.FindURLs(c.Request.Context(), req.PLZList, req.Filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Fehler beim Generieren der URLs: %v", err)})
		return
	}

	urls := make([]string, 0, len(results))
	for _, plz := range req.PLZList {
		if u, ok := results[strings.TrimSpace(plz)]; ok && !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"urls":    urls,
		"count":   len(urls),
		"results": results,
	})
}

func (h *Handler) GetExportLast(c *gin.Context) {
	h.export(c, "letzte_suche", func(criteria *links.Criteria) error {
		criteria.LastBatchOnly = true
		return nil
	})
}

func (h *Handler) GetExportAll(c *gin.Context) {
	h.export(c, "alle_links", func(criteria *links.Criteria) error {
		criteria.LastBatchOnly = false
		return nil
	})
}

func (h *Handler) GetExportFiltered(c *gin.Context) {
	h.export(c, "links", func(criteria *links.Criteria) error {
		if criteria.Year == 0 || criteria.Month == 0 {
			return fmt.Errorf("%w: year and month are required", links.ErrValidation)
		}
		return nil
	})
}

func (h *Handler) export(c *gin.Context, base string, adjust func(*links.Criteria) error) {
	query, criteria, ok := bindCriteria(c)
	if !ok {
		return
	}
	if err := adjust(&criteria); err != nil {
		respondError(c, err)
		return
	}

	format, err := scraper.ParseFormat(query.Format)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := h.service.Export(criteria, format)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := exportFilename(base, criteria, format)
	slog.Info("Links exported", "filename", filename, "makler", criteria.Agencies)

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, format.ContentType(), data)
}

func (h *Handler) GetFeedLast(c *gin.Context) {
	_, criteria, ok := bindCriteria(c)
	if !ok {
		return
	}
	criteria.LastBatchOnly = true

	rss, count, err := h.service.Feed(criteria, "Letzte Suche", c.Request.URL.Path)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(count))
	c.String(http.StatusOK, rss)
}
