package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"appgambit/internal/microservices/http-api/dto"
	"appgambit/internal/microservices/http-api/middleware"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/service"
)

const refreshTokenCookie = "refresh_token"

type AuthHandler struct {
	authService   service.AuthService
	oauthService  service.OAuthService
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(authService service.AuthService, oauthService service.OAuthService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		oauthService:  oauthService,
		secureCookies: secureCookies,
		logger:        orDefault(logger),
	}
}

func (h *AuthHandler) RegisterRoutes(public *gin.RouterGroup) {
	account := public.Group("/Account")
	{
		account.POST("/Register", h.Register)
		account.POST("/Login", h.Login)
		account.POST("/Logout", h.Logout)
		account.POST("/Refresh", h.RefreshToken)
		account.GET("/ExternalLogin", h.ExternalLogin)
		account.GET("/ExternalLoginCallback", h.ExternalLoginCallback)
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.RegisterResponse{
		UserID:   user.ID,
		Username: user.Username,
		Message:  "Account created",
	})
}

// Login accepts a username or an email address in the login field.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	pair, user, err := h.authService.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.signedIn(c, pair, user)
}

// RefreshToken rotates both tokens; the presented refresh token stops working.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, ok := h.refreshTokenFrom(c)
	if !ok {
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		h.clearCookies(c)
		respondError(c, h.logger, err)
		return
	}
	claims, err := h.authService.ValidateToken(pair.AccessToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.signedIn(c, pair, &models.User{ID: claims.UserID, Username: claims.Username, Role: claims.Role})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshTokenRequest
	_ = c.ShouldBind(&req)
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(refreshTokenCookie)
	}
	if req.RefreshToken != "" {
		if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
			h.logger.WarnContext(c.Request.Context(), "logout failed", "err", err)
		}
	}
	h.clearCookies(c)
	// always succeed so callers learn nothing about token validity
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// ExternalLogin starts the provider flow. Browsers are redirected; callers
// asking for JSON get the URL instead.
func (h *AuthHandler) ExternalLogin(c *gin.Context) {
	authURL, state, err := h.oauthService.Begin(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if c.Query("format") == "json" || strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, dto.ExternalLoginResponse{AuthURL: authURL, State: state})
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

func (h *AuthHandler) ExternalLoginCallback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "external login failed: " + providerErr})
		return
	}
	pair, user, err := h.oauthService.Complete(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.signedIn(c, pair, user)
}

func (h *AuthHandler) refreshTokenFrom(c *gin.Context) (string, bool) {
	var req dto.RefreshTokenRequest
	_ = c.ShouldBind(&req)
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(refreshTokenCookie)
	}
	if req.RefreshToken == "" {
		badRequest(c, errors.New("refresh_token is required"))
		return "", false
	}
	return req.RefreshToken, true
}

// signedIn answers with the token pair and mirrors it into HttpOnly cookies.
func (h *AuthHandler) signedIn(c *gin.Context, pair *service.TokenPair, user *models.User) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, int(pair.ExpiresIn.Seconds()), "/", "", h.secureCookies, true)
	c.SetCookie(refreshTokenCookie, pair.RefreshToken, 0, "/Account", "", h.secureCookies, true)
	c.JSON(http.StatusOK, dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	})
}

func (h *AuthHandler) clearCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/Account", "", h.secureCookies, true)
}
