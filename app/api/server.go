package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/listing-comb/app/cfg"
)

func NewServer(handler *Handler) *gin.Engine {
	if !cfg.Get().Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/", handler.GetRoot)
	r.GET("/health", handler.GetHealth)

	r.POST("/search", handler.PostSearch)
	r.POST("/search/makler", handler.PostSearchAgencies)

	r.GET("/links", handler.GetLinks)
	r.GET("/links/grouped", handler.GetLinksGrouped)
	r.DELETE("/links", handler.DeleteLinks)
	r.DELETE("/blacklist", handler.DeleteBlacklist)

	r.GET("/makler", handler.GetAgencies)
	r.POST("/makler", handler.PostAgency)
	r.DELETE("/makler/:name", handler.DeleteAgency)
	r.POST("/makler/:name/links", handler.PostAgencyLink)
	r.DELETE("/makler/:name/links", handler.DeleteAgencyLink)

	r.POST("/generate-urls", handler.PostGenerateURLs)

	r.GET("/export/last", handler.GetExportLast)
	r.GET("/export/all", handler.GetExportAll)
	r.GET("/export/filtered", handler.GetExportFiltered)

	r.GET("/feed/last", handler.GetFeedLast)

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}
