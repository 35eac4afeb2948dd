package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentboard/internal/infra/config"
	"rentboard/internal/infra/obs"
)

type ListingHTTP interface {
	Search(c *gin.Context)
	Featured(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Deactivate(c *gin.Context)
	UploadImages(c *gin.Context)
	Mine(c *gin.Context)
}

type MessageHTTP interface {
	Threads(c *gin.Context)
	Thread(c *gin.Context)
	Send(c *gin.Context)
	MarkThreadRead(c *gin.Context)
	MarkMessageRead(c *gin.Context)
	MarkListingRead(c *gin.Context)
	Delete(c *gin.Context)
	UnreadCount(c *gin.Context)
	Participants(c *gin.Context)
}

type Handlers struct {
	Auth           AuthHTTP
	Listings       ListingHTTP
	Messages       MessageHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine without binding it to an address.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
		api.PATCH("/auth/me", h.Auth.UpdateMe)
	}
	if h.Listings != nil {
		api.GET("/listings", h.Listings.Search)
		api.GET("/listings/featured", h.Listings.Featured)
		api.GET("/listings/:id", h.Listings.Get)
		api.POST("/listings", h.Listings.Create)
		api.PUT("/listings/:id", h.Listings.Update)
		api.DELETE("/listings/:id", h.Listings.Deactivate)
		api.POST("/listings/:id/images", h.Listings.UploadImages)
		api.GET("/me/listings", h.Listings.Mine)
	}
	if h.Messages != nil {
		messages := api.Group("/messages")
		messages.GET("/threads", h.Messages.Threads)
		messages.GET("/threads/:listing/:counterpart", h.Messages.Thread)
		messages.POST("/threads/:listing/:counterpart/read", h.Messages.MarkThreadRead)
		messages.POST("", h.Messages.Send)
		messages.GET("/unread-count", h.Messages.UnreadCount)
		messages.POST("/:id/read", h.Messages.MarkMessageRead)
		messages.DELETE("/:id", h.Messages.Delete)
		messages.POST("/listings/:listing/read", h.Messages.MarkListingRead)
		messages.GET("/listings/:listing/participants", h.Messages.Participants)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
