package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"certify/cmd/middleware"
	"certify/internal/auth"
	"certify/internal/service"
)

type Routers struct {
	Service service.Service
	Log     *zerolog.Logger
	GinMode string

	// Auth guards organizer routes; nil leaves them open.
	Auth        *auth.Authenticator
	CORSOrigins []string

	Redis           *redis.Client
	VerifyRateLimit int64
	VerifyWindow    time.Duration

	// QRDir is served under QRURL when single QR codes are stored locally.
	QRDir string
	QRURL string

	Ready func(ctx context.Context) error
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.GinMode
	if mode == "" {
		mode = "release"
	}
	app := ginext.New(mode)

	app.Use(gin.Recovery())
	app.Use(middleware.LoggingMiddleware(r.Log))
	app.Use(corsMiddleware(r.CORSOrigins))

	apiGroup := app.Group("/api", r.Auth.Middleware())

	apiGroup.POST("/events", r.Service.CreateEvent)
	apiGroup.GET("/events", r.Service.ListEvents)
	apiGroup.PATCH("/events", r.Service.UpdateEvent)
	apiGroup.GET("/events/:id", r.Service.GetEvent)
	apiGroup.PATCH("/events/:id", r.Service.PatchEvent)
	apiGroup.DELETE("/events/:id", r.Service.DeleteEvent)
	apiGroup.GET("/events/:id/participants", r.Service.ListParticipants)

	apiGroup.POST("/upload-participants", r.Service.UploadParticipants)
	apiGroup.POST("/generate-qrcodes", r.Service.GenerateQRCodes)
	apiGroup.POST("/generate-single-qrcode", r.Service.GenerateSingleQRCode)
	apiGroup.POST("/customers/sync", r.Service.SyncCustomer)

	limit := middleware.RateLimit(r.Redis, "verify", r.VerifyRateLimit, r.VerifyWindow)
	app.GET("/api/verify/:participantId", limit, r.Service.VerifyByID)
	// QR codes encode the bare path; /page is kept for links shared before it existed.
	app.GET("/verify/:customerId/:eventSlug/:participantId", limit, r.Service.VerifyPage)
	app.GET("/verify/:customerId/:eventSlug/:participantId/page", limit, r.Service.VerifyPage)

	if r.QRDir != "" && r.QRURL != "" {
		app.Static(r.QRURL, r.QRDir)
	}

	app.GET("/healthz", func(c *ginext.Context) {
		if r.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := r.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	app.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return app
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AddAllowHeaders("Authorization")
	cfg.ExposeHeaders = []string{"Content-Disposition", "X-QR-Failed"}
	return cors.New(cfg)
}
