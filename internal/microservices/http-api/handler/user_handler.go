package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/middleware"
	"appgambit/internal/microservices/http-api/service"
)

type UserHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

func NewUserHandler(userService service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: orDefault(logger)}
}

func (h *UserHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/Users/:id", h.Profile)

	account := protected.Group("/Account")
	{
		account.GET("/Me", h.Me)
		account.PUT("/Profile", h.UpdateProfile)
		account.POST("/ProfileImage", h.UploadProfileImage)
	}
}

// GET /Account/Me
func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	me, err := h.userService.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

// GET /Users/:id
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.userService.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PUT /Account/Profile {"display_name":"..."}
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, _ := middleware.UserID(c)
	me, err := h.userService.UpdateProfile(c.Request.Context(), userID, req.DisplayName)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

// POST /Account/ProfileImage (multipart field "image")
func (h *UserHandler) UploadProfileImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required", "field": "image"})
		return
	}
	up, closeFn, err := upload(fh)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer closeFn()

	userID, _ := middleware.UserID(c)
	me, err := h.userService.SetProfileImage(c.Request.Context(), userID, up)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, me)
}
