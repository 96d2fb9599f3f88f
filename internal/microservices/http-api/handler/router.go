package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"appgambit/internal/logger"
	"appgambit/internal/metrics"
	"appgambit/internal/microservices/http-api/middleware"
	"appgambit/internal/microservices/http-api/service"
)

const requestTimeout = 5 * time.Second

// Services is everything the router dispatches to.
type Services struct {
	Auth         service.AuthService
	OAuth        service.OAuthService
	Users        service.UserService
	Applications service.ApplicationService
	Comments     service.CommentService
	Ratings      service.RatingService
	Images       service.ImageService
	Search       service.SearchService
	Analytics    service.AnalyticsService
}

type RouterConfig struct {
	CORSOrigins        []string
	SecureCookies      bool
	MaxMultipartMemory int64
	// RateLimiter is optional.
	RateLimiter *middleware.RateLimiter
	// Health reports whether dependencies are reachable; nil means always healthy.
	Health func() error
}

// NewRouter builds the gin engine. Downloads and images are mounted without
// the request timeout since they stream payloads.
func NewRouter(svc Services, cfg RouterConfig, log *slog.Logger) *gin.Engine {
	log = orDefault(log)

	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(log), metrics.Middleware(), middleware.CORS(cfg.CORSOrigins))
	if cfg.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = cfg.MaxMultipartMemory
	}

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	root := r.Group("/", middleware.OptionalAuth(svc.Auth))
	if cfg.RateLimiter != nil {
		root.Use(cfg.RateLimiter.Handler())
	}

	streaming := root.Group("/")
	NewImageHandler(svc.Images, log).RegisterRoutes(streaming)

	public := root.Group("/", middleware.Timeout(requestTimeout))
	protected := public.Group("/", middleware.RequireAuth(svc.Auth))
	admin := public.Group("/Admin", middleware.RequireAuth(svc.Auth), middleware.RequireAdmin())
	api := public.Group("/api")
	adminAPI := api.Group("/", middleware.RequireAuth(svc.Auth), middleware.RequireAdmin())

	apps := NewApplicationHandler(svc.Applications, log)
	apps.RegisterRoutes(public, protected)
	apps.RegisterDownload(streaming)

	NewCommentHandler(svc.Comments, log).RegisterRoutes(public, protected)
	NewRatingHandler(svc.Ratings, log).RegisterRoutes(public, protected)
	NewAuthHandler(svc.Auth, svc.OAuth, cfg.SecureCookies, log).RegisterRoutes(public)
	NewUserHandler(svc.Users, log).RegisterRoutes(public, protected)
	NewAdminHandler(svc.Applications, svc.Comments, svc.Users, log).RegisterRoutes(admin)
	NewSearchHandler(svc.Search, log).RegisterRoutes(api)
	NewThemeHandler(cfg.SecureCookies).RegisterRoutes(api)
	NewAnalyticsHandler(svc.Analytics, log).RegisterRoutes(adminAPI)

	return r
}
