package server

import (
	"strconv"
	"time"

	"campushub/auth"
	"campushub/config"
	"campushub/db"
	"campushub/feed"
	"campushub/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "campushub_http_requests_total",
	Help: "The total number of HTTP requests handled, by route and status",
}, []string{"method", "route", "status"})

// ServerConfig carries the wired collaborators for the HTTP server.
type ServerConfig struct {
	// App level settings (page sizes, CORS origins)
	Cfg *config.Config

	// The shared store backing all handlers
	DB *db.DB

	// Token issuing and verification
	Auth *auth.Auth

	// The feed aggregation pipeline
	Aggregator *feed.Aggregator

	// Live notification fan-out
	Broadcaster *notify.Broadcaster
	Dispatcher  *notify.Dispatcher
}

// Server returns a fiber.App instance serving the campushub HTTP API.
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		stop := time.Now()

		httpRequests.WithLabelValues(
			c.Method(), c.Route().Path, strconv.Itoa(c.Response().StatusCode()),
		).Inc()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.Cfg.CORSOrigins,
		AllowHeaders:     "Authorization, Content-Type, Cache-Control",
		AllowCredentials: true,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	h := &handler{
		db:          config.DB,
		auth:        config.Auth,
		aggregator:  config.Aggregator,
		broadcaster: config.Broadcaster,
		dispatcher:  config.Dispatcher,
		cfg:         config.Cfg,
	}

	requireAuth := auth.Middleware(config.Auth)

	api := app.Group("/api")

	api.Post("/auth/register", h.register)
	api.Post("/auth/login", h.login)

	api.Get("/feed", requireAuth, h.getFeed)

	api.Get("/equipment", h.listEquipment)
	api.Post("/equipment", requireAuth, h.createEquipment)
	api.Get("/equipment/:id", h.getEquipment)
	api.Post("/equipment/:id/loans", requireAuth, h.requestLoan)
	api.Put("/loans/:id/status", requireAuth, h.updateLoanStatus)
	api.Get("/loans", requireAuth, h.listLoans)

	api.Get("/carpools", h.listCarpools)
	api.Post("/carpools", requireAuth, h.createCarpool)
	api.Post("/carpools/:id/join", requireAuth, h.joinCarpool)

	api.Get("/posts", h.listPosts)
	api.Post("/posts", requireAuth, h.createPost)
	api.Get("/posts/:id", h.getPost)
	api.Post("/posts/:id/like", requireAuth, h.likePost)
	api.Post("/posts/:id/comments", requireAuth, h.addComment)

	api.Get("/notifications", requireAuth, h.listNotifications)
	api.Put("/notifications/:id/read", requireAuth, h.markNotificationRead)
	api.Get("/notifications/sse", requireAuth, h.notificationStream)
	api.Delete("/notifications/sse", requireAuth, h.closeNotificationStream)

	return app
}
