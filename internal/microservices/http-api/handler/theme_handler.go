package handler

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

const (
	themeCookie  = "theme"
	defaultTheme = "light"
	themeMaxAge  = 365 * 24 * 60 * 60
)

var themes = []string{"light", "dark", "auto"}

type ThemeRequest struct {
	Theme string `json:"theme" form:"theme" binding:"required"`
}

// ThemeHandler keeps the UI theme in a cookie; nothing is stored server side.
type ThemeHandler struct {
	secureCookies bool
}

func NewThemeHandler(secureCookies bool) *ThemeHandler {
	return &ThemeHandler{secureCookies: secureCookies}
}

func (h *ThemeHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/theme/current", h.Current)
	api.POST("/theme/set", h.Set)
}

// GET /api/theme/current
func (h *ThemeHandler) Current(c *gin.Context) {
	theme, err := c.Cookie(themeCookie)
	if err != nil || !slices.Contains(themes, theme) {
		theme = defaultTheme
	}
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

// POST /api/theme/set {"theme":"dark"}
func (h *ThemeHandler) Set(c *gin.Context) {
	var req ThemeRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !slices.Contains(themes, req.Theme) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be one of light, dark, auto", "field": "theme"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(themeCookie, req.Theme, themeMaxAge, "/", "", h.secureCookies, false)
	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}
