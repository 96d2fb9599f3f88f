package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/middleware"
	"appgambit/internal/microservices/http-api/service"
)

// AdminHandler holds moderation endpoints. Mount it behind RequireAuth and
// RequireAdmin; the services check the role again.
type AdminHandler struct {
	applicationService service.ApplicationService
	commentService     service.CommentService
	userService        service.UserService
	logger             *slog.Logger
}

func NewAdminHandler(applicationService service.ApplicationService, commentService service.CommentService, userService service.UserService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		applicationService: applicationService,
		commentService:     commentService,
		userService:        userService,
		logger:             orDefault(logger),
	}
}

func (h *AdminHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/Users", h.Users)
	admin.POST("/DeleteApplication/:id", h.DeleteApplication)
	admin.POST("/DeleteComment/:id", h.DeleteComment)
	admin.POST("/DeleteUser/:id", h.DeleteUser)
	admin.POST("/SetRole/:id", h.SetRole)
}

// GET /Admin/Users?search=&page=1&page_size=20
func (h *AdminHandler) Users(c *gin.Context) {
	page, pageSize := pageQuery(c)
	users, err := h.userService.List(c.Request.Context(), c.Query("search"), page, pageSize, middleware.Requester(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// POST /Admin/DeleteApplication/:id
func (h *AdminHandler) DeleteApplication(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.applicationService.Delete(c.Request.Context(), id, middleware.Requester(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application deleted successfully"})
}

// POST /Admin/DeleteComment/:id
func (h *AdminHandler) DeleteComment(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.commentService.DeleteComment(c.Request.Context(), id, middleware.Requester(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// POST /Admin/DeleteUser/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), c.Param("id"), middleware.Requester(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// POST /Admin/SetRole/:id {"role":"admin"}
func (h *AdminHandler) SetRole(c *gin.Context) {
	var req dto.SetRoleRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.userService.SetRole(c.Request.Context(), c.Param("id"), req.Role, middleware.Requester(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "role": req.Role})
}
