package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jwalitptl/booking-engine/internal/middleware"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	health   Handler
	handlers []Handler
	metrics  *metrics.Metrics
}

type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	RateLimit      bool
	RateRPS        float64
	RateBurst      int
	CORSConfig     middleware.CORSConfig
	SizeLimit      middleware.SizeLimitConfig
	ReleaseMode    bool
}

// NewRouter builds the engine. health is mounted ahead of the rate limiter so health checks are
// never throttled; every other handler is mounted under /api/v1.
func NewRouter(config RouterConfig, log *logger.Logger, m *metrics.Metrics, health Handler, handlers ...Handler) *Router {
	if config.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	r := &Router{
		engine:   engine,
		health:   health,
		handlers: handlers,
		metrics:  m,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(),
		otelgin.Middleware(config.ServiceName),
		r.metricsMiddleware(),
		middleware.ErrorHandler(),
		middleware.Timeout(config.RequestTimeout),
		middleware.SecurityHeaders(),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, middleware.ErrorResponse{
			Status:    "error",
			Code:      "NotFound",
			Message:   "route not found",
			RequestID: c.GetString(middleware.ContextRequestID),
		})
	})

	r.setup(config)
	return r
}

func (r *Router) setup(config RouterConfig) {
	api := r.engine.Group("/api/v1")

	// Add version header
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	if r.health != nil {
		r.health.RegisterRoutes(api)
	}

	limited := api.Group("")
	if config.RateLimit {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   config.RateRPS,
			Burst: config.RateBurst,
		})
		limited.Use(rateLimiter.RateLimit())
	}
	if config.SizeLimit.MaxBodySize > 0 {
		limited.Use(middleware.SizeLimit(config.SizeLimit))
	}

	for _, h := range r.handlers {
		h.RegisterRoutes(limited)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		r.metrics.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
