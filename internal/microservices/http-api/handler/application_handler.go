package handler

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/middleware"
	"appgambit/internal/microservices/http-api/service"
)

type ApplicationHandler struct {
	applicationService service.ApplicationService
	logger             *slog.Logger
}

func NewApplicationHandler(applicationService service.ApplicationService, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService, logger: orDefault(logger)}
}

// RegisterRoutes registers the catalog routes. protected must run RequireAuth.
func (h *ApplicationHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/", h.List)
	public.GET("/Applications/Popular", h.Popular)
	public.GET("/Applications/Categories", h.Categories)
	public.GET("/Applications/Details/:id", h.Details)
	public.GET("/Applications/:name", h.DetailsByName)

	protected.POST("/Applications/Create", h.Create)
	protected.POST("/Applications/Edit/:id", h.Edit)
	protected.POST("/Applications/Delete/:id", h.Delete)
}

// RegisterDownload is kept apart so it can be mounted without a timeout.
func (h *ApplicationHandler) RegisterDownload(public *gin.RouterGroup) {
	public.POST("/Applications/Download/:id", h.Download)
}

// List returns the catalog page.
// GET /?search=&category=&tag=&sort=&page=1&page_size=20
func (h *ApplicationHandler) List(c *gin.Context) {
	var q dto.ApplicationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	page, err := h.applicationService.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /Applications/Details/:id
func (h *ApplicationHandler) Details(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	detail, err := h.applicationService.Detail(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// DetailsByName resolves an application by its exact name.
// GET /Applications/:name
func (h *ApplicationHandler) DetailsByName(c *gin.Context) {
	detail, err := h.applicationService.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GET /Applications/Popular?limit=10
func (h *ApplicationHandler) Popular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	apps, err := h.applicationService.Popular(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": apps})
}

// GET /Applications/Categories
func (h *ApplicationHandler) Categories(c *gin.Context) {
	categories, err := h.applicationService.Categories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// Create publishes an application from a multipart form.
// POST /Applications/Create
func (h *ApplicationHandler) Create(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	in, uploads, cleanup, ok := h.bindApplication(c)
	if !ok {
		return
	}
	defer cleanup()

	app, err := h.applicationService.Create(c.Request.Context(), in, uploads, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// Edit updates an application; only its owner or an admin may.
// POST /Applications/Edit/:id
func (h *ApplicationHandler) Edit(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	in, uploads, cleanup, ok := h.bindApplication(c)
	if !ok {
		return
	}
	defer cleanup()

	app, err := h.applicationService.Update(c.Request.Context(), id, in, uploads, middleware.Requester(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// POST /Applications/Delete/:id
func (h *ApplicationHandler) Delete(c *gin.Context) {
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

// Download streams the stored package, or redirects to the external URL.
// POST /Applications/Download/:id
func (h *ApplicationHandler) Download(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	dl, err := h.applicationService.Download(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if dl.File == nil {
		c.Redirect(http.StatusFound, dl.Application.DownloadURL)
		return
	}
	defer dl.File.Content.Close()

	name := dl.File.Meta.FileName
	if name == "" {
		name = dl.Application.Name
	}
	c.DataFromReader(http.StatusOK, dl.File.Meta.Size, dl.File.Meta.ContentType, dl.File.Content, map[string]string{
		"Content-Disposition": `attachment; filename="` + strings.ReplaceAll(name, `"`, "") + `"`,
	})
}

// bindApplication reads the form fields and the optional icon, file and
// screenshots parts. JSON bodies carry fields only.
func (h *ApplicationHandler) bindApplication(c *gin.Context) (dto.ApplicationInput, service.ApplicationUploads, func(), bool) {
	var in dto.ApplicationInput
	var uploads service.ApplicationUploads
	var closers []func()
	cleanup := func() {
		for _, f := range closers {
			f()
		}
	}

	if err := c.ShouldBind(&in); err != nil {
		badRequest(c, err)
		return in, uploads, cleanup, false
	}
	in.Tags = splitTags(in.Tags)

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return in, uploads, cleanup, true
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err)
		return in, uploads, cleanup, false
	}

	open := func(fh *multipart.FileHeader) (*service.Upload, bool) {
		up, closeFn, err := upload(fh)
		if err != nil {
			respondError(c, h.logger, err)
			return nil, false
		}
		closers = append(closers, closeFn)
		return &up, true
	}

	var ok bool
	if files := form.File["icon"]; len(files) > 0 {
		if uploads.Icon, ok = open(files[0]); !ok {
			cleanup()
			return in, uploads, func() {}, false
		}
	}
	if files := form.File["file"]; len(files) > 0 {
		if uploads.File, ok = open(files[0]); !ok {
			cleanup()
			return in, uploads, func() {}, false
		}
	}
	for _, fh := range form.File["screenshots"] {
		up, ok := open(fh)
		if !ok {
			cleanup()
			return in, uploads, func() {}, false
		}
		uploads.Screenshots = append(uploads.Screenshots, *up)
	}
	return in, uploads, cleanup, true
}

// splitTags accepts repeated tags fields as well as one comma separated value.
// nil stays nil so an edit without tags keeps the current ones.
func splitTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
