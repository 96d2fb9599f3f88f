package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"appgambit/internal/microservices/http-api/service"
)

// AnalyticsHandler serves the admin dashboard data. Mount it behind
// RequireAuth and RequireAdmin.
type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	logger           *slog.Logger
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, logger: orDefault(logger)}
}

func (h *AnalyticsHandler) RegisterRoutes(admin *gin.RouterGroup) {
	analytics := admin.Group("/analytics")
	{
		analytics.GET("/dashboard", h.Dashboard)
		analytics.GET("/charts/categories", h.CategoryChart)
		analytics.GET("/charts/registrations", h.RegistrationChart)
		analytics.GET("/charts/ratings", h.RatingChart)
		analytics.GET("/charts/downloads", h.DownloadChart)
		analytics.GET("/system-info", h.SystemInfo)
	}
}

// GET /api/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	d, err := h.analyticsService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/analytics/charts/categories
func (h *AnalyticsHandler) CategoryChart(c *gin.Context) {
	c.JSON(http.StatusOK, h.analyticsService.CategoryChart(c.Request.Context()))
}

// GET /api/analytics/charts/registrations?days=30
func (h *AnalyticsHandler) RegistrationChart(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	c.JSON(http.StatusOK, h.analyticsService.RegistrationChart(c.Request.Context(), days))
}

// GET /api/analytics/charts/ratings
func (h *AnalyticsHandler) RatingChart(c *gin.Context) {
	c.JSON(http.StatusOK, h.analyticsService.RatingChart(c.Request.Context()))
}

// GET /api/analytics/charts/downloads
func (h *AnalyticsHandler) DownloadChart(c *gin.Context) {
	c.JSON(http.StatusOK, h.analyticsService.DownloadChart(c.Request.Context()))
}

// GET /api/analytics/system-info
func (h *AnalyticsHandler) SystemInfo(c *gin.Context) {
	info, err := h.analyticsService.SystemInfo(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
