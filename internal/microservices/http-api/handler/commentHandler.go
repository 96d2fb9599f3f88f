package handler

import (
	"log/slog"
	"net/http"

	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/middleware"
	"appgambit/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService service.CommentService
	logger         *slog.Logger
}

func NewCommentHandler(commentService service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         orDefault(logger),
	}
}

// RegisterRoutes registers comment-related routes. protected must run RequireAuth.
func (h *CommentHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/Applications/Comments/:id", h.ListByApplication)

	protected.POST("/Applications/AddComment/:id", h.Create)
	protected.POST("/Applications/UpdateComment/:commentId", h.Update)
	protected.POST("/Applications/DeleteComment/:commentId", h.Delete)
	protected.GET("/Account/Comments", h.ListByCurrentUser)
}

// Create adds a comment to an application
// POST /Applications/AddComment/:id
func (h *CommentHandler) Create(c *gin.Context) {
	applicationID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)

	var req dto.CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), applicationID, userID, req.Content)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Update edits a comment (author or admin)
// POST /Applications/UpdateComment/:commentId
func (h *CommentHandler) Update(c *gin.Context) {
	commentID, ok := int64Param(c, "commentId")
	if !ok {
		return
	}

	var req dto.CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.commentService.UpdateComment(c.Request.Context(), commentID, req.Content, middleware.Requester(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// Delete removes a comment (author or admin)
// POST /Applications/DeleteComment/:commentId
func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, ok := int64Param(c, "commentId")
	if !ok {
		return
	}
	if err := h.commentService.DeleteComment(c.Request.Context(), commentID, middleware.Requester(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// ListByApplication pages through an application's comments, newest first
// GET /Applications/Comments/:id?page=1&page_size=20
func (h *CommentHandler) ListByApplication(c *gin.Context) {
	applicationID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	page, pageSize := pageQuery(c)

	comments, err := h.commentService.ListComments(c.Request.Context(), applicationID, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// ListByCurrentUser retrieves the caller's comments
// GET /Account/Comments?page=1&page_size=20
func (h *CommentHandler) ListByCurrentUser(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	page, pageSize := pageQuery(c)

	comments, err := h.commentService.UserComments(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}
