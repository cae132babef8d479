package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/karloscodes/cartridge"

	v1 "trackway/api/v1"
	"trackway/internal/config"
	"trackway/internal/http"
	"trackway/internal/http/middleware"
	"trackway/internal/pkg/clientip"
)

// publicCORSConfig is the CORS configuration shared by all public ingestion
// endpoints; the tracker snippet posts cross-origin from every tracked site.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API.
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Rate limiting only applies in production; in development and test it
	// would interfere with seeding and integration tests.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 70/min per client handles legitimate tracker traffic while limiting
	// abuse. Keyed on the proxy-resolved client IP rather than the socket
	// address: behind a reverse proxy the socket peer is the proxy, and a
	// single bucket would throttle all tracked sites together.
	publicRateLimiter := conditionalRateLimiter(limiter.New(limiter.Config{
		Max:        70,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.CopyString(clientip.FromRequest(c))
		},
	}))

	// Public ingestion config: CORS runs first so rejections still carry CORS
	// headers.
	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	logger := srv.GetLogger()

	reportingConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{
			middleware.ReportingAPIKeyAuth(cfg.PrivateKey, logger),
		},
	}

	// === ROOT ROUTES ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === PUBLIC API ROUTES ===
	srv.Post("/x/api/v1/tracks", v1.CreateTrackPublicAPIHandler, publicAPIConfig)
	srv.Options("/x/api/v1/tracks", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)
	srv.Post("/x/api/v1/tracks/beacon", v1.CreateTrackBeaconHandler, publicAPIConfig)
	srv.Options("/x/api/v1/tracks/beacon", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	// === REPORTING API ROUTES ===
	srv.Get("/api/v1/metrics", http.MetricsCatalogAction, reportingConfig)
	srv.Get("/api/v1/sites", http.SitesIndexAction, reportingConfig)
	srv.Post("/api/v1/sites", http.SitesCreateAction, reportingConfig)
	srv.Delete("/api/v1/sites/:id", http.SitesDeleteAction, reportingConfig)
	srv.Get("/api/v1/sites/:id/tracks", http.SiteTracksAction, reportingConfig)
	srv.Get("/api/v1/sites/:id/metrics", http.SiteMetricsSummaryAction, reportingConfig)
	srv.Get("/api/v1/sites/:id/metrics/bounce_rate", http.SiteBounceRateAction, reportingConfig)
	srv.Get("/api/v1/sites/:id/metrics/:metric", http.SiteMetricAction, reportingConfig)
}
