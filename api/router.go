package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/causelist/api/handler"
	"github.com/use-agent/causelist/api/middleware"
	"github.com/use-agent/causelist/cache"
	"github.com/use-agent/causelist/captcha"
	"github.com/use-agent/causelist/config"
	"github.com/use-agent/causelist/metrics"
	"github.com/use-agent/causelist/store"
)

// Deps are the collaborators the HTTP surface is built from. Prompter,
// History, Metrics and Probe are optional.
type Deps struct {
	Config   *config.Config
	Queue    *handler.Queue
	Courts   *cache.Cache
	CacheKey string
	Prompter *captcha.ChannelPrompter
	History  *store.History
	Metrics  *metrics.Metrics
	Probe    handler.ProbeFunc
	Started  time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and /metrics stay outside auth so monitoring probes always work.
// ctx bounds background sweeps owned by the middleware.
func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	cfg := d.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(d.Queue, d.Probe, d.Started))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Courts
	protected.GET("/courts", handler.Courts(d.Queue, d.Courts, d.CacheKey))

	// Cause lists
	protected.POST("/causelist", handler.PostCauseList(d.Queue, d.Courts, cfg.Portal.DateWindowDays))
	protected.GET("/causelist/:id", handler.GetCauseList(d.Queue))

	// Manual CAPTCHA entry
	if d.Prompter != nil {
		protected.GET("/captcha", handler.GetCaptcha(d.Prompter))
		protected.GET("/captcha/image", handler.GetCaptchaImage(d.Prompter))
		protected.POST("/captcha", handler.PostCaptcha(d.Prompter))
	}

	// History
	protected.GET("/outcomes", handler.Outcomes(d.History))

	return r
}
