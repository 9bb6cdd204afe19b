// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"trekka/internal/bookings"
	"trekka/internal/fleet"
	"trekka/internal/notifications"
	"trekka/internal/payments"
	"trekka/internal/shared/config"
	"trekka/internal/shared/database"
	"trekka/pkg/cache"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	producer notifications.Producer // nil when Kafka is disabled

	// Shared across route groups
	fleetService   fleet.Service
	bookingService bookings.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, producer notifications.Producer) *Router {
	return &Router{
		config:   cfg,
		db:       db,
		producer: producer,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// Prometheus scrape endpoint
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Fleet first: the booking workflow consumes its seat ledger
		r.setupFleetRoutes(api)
		r.setupBookingRoutes(api)
		r.setupPaymentRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "trekka-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "trekka-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupFleetRoutes configures vehicle and seat inventory routes
func (r *Router) setupFleetRoutes(rg *gin.RouterGroup) {
	fleetRepo := fleet.NewRepository(r.db.GetPostgreSQL())
	r.fleetService = fleet.NewService(fleetRepo)
	fleetController := fleet.NewController(r.fleetService)

	fleet.SetupFleetRoutes(rg, fleetController)
}

// setupBookingRoutes configures booking workflow routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL())

	var publisher bookings.Publisher
	if r.producer != nil {
		publisher = r.producer
	}
	r.bookingService = bookings.NewService(bookingRepo, r.fleetService, publisher)
	bookingController := bookings.NewController(r.bookingService)

	bookings.SetupBookingRoutes(rg, bookingController)
}

// setupPaymentRoutes configures payment and webhook routes
func (r *Router) setupPaymentRoutes(rg *gin.RouterGroup) {
	paymentRepo := payments.NewRepository(r.db.GetPostgreSQL())
	gateway := payments.NewPaystackClient(&r.config.Payment)

	var publisher payments.ReceiptPublisher
	if r.producer != nil {
		publisher = r.producer
	}
	paymentService := payments.NewService(paymentRepo, gateway, r.bookingService, publisher, r.config.Payment.Currency)
	paymentController := payments.NewController(paymentService)

	cacheService := cache.NewService(r.db.GetRedisClient())
	webhookController := payments.NewWebhookController(
		paymentService,
		gateway,
		cacheService,
		r.config.Payment.AllowUnsignedWebhooks,
		r.config.Redis.WebhookDedupTTL,
	)

	payments.SetupPaymentRoutes(rg, paymentController, webhookController)
}
