package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"appgambit/internal/microservices/http-api/service"
)

type SearchHandler struct {
	searchService service.SearchService
	logger        *slog.Logger
}

func NewSearchHandler(searchService service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{searchService: searchService, logger: orDefault(logger)}
}

func (h *SearchHandler) RegisterRoutes(api *gin.RouterGroup) {
	search := api.Group("/search")
	{
		search.GET("/suggestions", h.Suggestions)
		search.GET("/quick", h.Quick)
		search.GET("/filters", h.Filters)
	}
}

func searchParams(c *gin.Context) (string, int) {
	q := c.Query("q")
	if q == "" {
		q = c.Query("query")
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	return q, limit
}

// Suggestions groups matches by kind
// GET /api/search/suggestions?q=&limit=10
func (h *SearchHandler) Suggestions(c *gin.Context) {
	q, limit := searchParams(c)
	out, err := h.searchService.Suggest(c.Request.Context(), q, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Quick returns one flat result list
// GET /api/search/quick?q=&limit=10
func (h *SearchHandler) Quick(c *gin.Context) {
	q, limit := searchParams(c)
	out, err := h.searchService.QuickSearch(c.Request.Context(), q, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Filters lists categories and tags with counts
// GET /api/search/filters
func (h *SearchHandler) Filters(c *gin.Context) {
	out, err := h.searchService.Filters(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
