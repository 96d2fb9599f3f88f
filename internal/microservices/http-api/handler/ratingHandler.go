package handler

import (
	"log/slog"
	"net/http"

	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/middleware"
	"appgambit/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	ratingService service.RatingService
	logger        *slog.Logger
}

func NewRatingHandler(ratingService service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{
		ratingService: ratingService,
		logger:        orDefault(logger),
	}
}

// RegisterRoutes registers rating-related routes. protected must run RequireAuth.
func (h *RatingHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/Applications/Rating/:id", h.Summary)

	protected.POST("/Applications/Rate/:id", h.Rate)
	protected.POST("/Applications/DeleteRating/:id", h.Delete)
	protected.GET("/Applications/MyRating/:id", h.GetUserRating)
}

// Rate creates or replaces the caller's rating
// POST /Applications/Rate/:id
func (h *RatingHandler) Rate(c *gin.Context) {
	applicationID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)

	var req dto.RateRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	rating, err := h.ratingService.Rate(c.Request.Context(), applicationID, userID, req.Value, req.IsLike)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

// Delete removes the caller's rating
// POST /Applications/DeleteRating/:id
func (h *RatingHandler) Delete(c *gin.Context) {
	applicationID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)

	if err := h.ratingService.DeleteRating(c.Request.Context(), applicationID, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rating deleted successfully"})
}

// GetUserRating returns the caller's rating for an application
// GET /Applications/MyRating/:id
func (h *RatingHandler) GetUserRating(c *gin.Context) {
	applicationID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)

	rating, err := h.ratingService.UserRating(c.Request.Context(), applicationID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

// Summary returns the average, count and like split
// GET /Applications/Rating/:id
func (h *RatingHandler) Summary(c *gin.Context) {
	applicationID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	summary, err := h.ratingService.Summary(c.Request.Context(), applicationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
