package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"appgambit/internal/microservices/http-api/service"
)

// blobs never change once written, a new upload gets a new id
const imageCacheControl = "public, max-age=86400"

type ImageHandler struct {
	imageService service.ImageService
	logger       *slog.Logger
}

func NewImageHandler(imageService service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{imageService: imageService, logger: orDefault(logger)}
}

func (h *ImageHandler) RegisterRoutes(public *gin.RouterGroup) {
	public.GET("/Image/:id", h.Get)
	public.GET("/Image/Profile/:userId", h.Profile)
	public.GET("/Image/Icon/:applicationId", h.Icon)
}

// GET /Image/:id
func (h *ImageHandler) Get(c *gin.Context) {
	blob, err := h.imageService.Open(c.Request.Context(), c.Param("id"))
	h.serve(c, blob, err, true)
}

// GET /Image/Profile/:userId
func (h *ImageHandler) Profile(c *gin.Context) {
	blob, err := h.imageService.ProfileImage(c.Request.Context(), c.Param("userId"))
	h.serve(c, blob, err, false)
}

// GET /Image/Icon/:applicationId
func (h *ImageHandler) Icon(c *gin.Context) {
	id, ok := int64Param(c, "applicationId")
	if !ok {
		return
	}
	blob, err := h.imageService.ApplicationIcon(c.Request.Context(), id)
	h.serve(c, blob, err, false)
}

// serve streams a blob. Profile and icon URLs are stable while the image
// behind them changes, so only id lookups are cached by clients.
func (h *ImageHandler) serve(c *gin.Context, blob *service.Blob, err error, cacheable bool) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer blob.Content.Close()

	headers := map[string]string{}
	if cacheable {
		headers["Cache-Control"] = imageCacheControl
		headers["ETag"] = `"` + blob.Meta.ID + `"`
		if c.GetHeader("If-None-Match") == headers["ETag"] {
			c.Status(http.StatusNotModified)
			return
		}
	} else {
		headers["Cache-Control"] = "no-cache"
	}
	c.DataFromReader(http.StatusOK, blob.Meta.Size, blob.Meta.ContentType, blob.Content, headers)
}
