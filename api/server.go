// Package api exposes the order, store and identity operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	limiter "github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/common/apiutil"
	_ "github.com/Aidin1998/foodhub/docs"
	"github.com/Aidin1998/foodhub/internal/identity"
	"github.com/Aidin1998/foodhub/internal/orders"
	"github.com/Aidin1998/foodhub/internal/settings"
	"github.com/Aidin1998/foodhub/internal/ws"
)

// Deps are the services behind the routes.
type Deps struct {
	Orders    *orders.Service
	Settings  *settings.Repository
	OTP       *identity.OTPService
	Tokens    *identity.Tokens
	Operators *identity.Operators
	Hub       *ws.Hub
	// Health reports whether backing stores are reachable.
	Health func(ctx context.Context) error
}

// Options tune the HTTP surface.
type Options struct {
	AllowedOrigins []string
	// OTPRate limits code requests per client IP, in limiter format ("5-M").
	OTPRate string
}

const wsPath = "/api/v1/ws"

// Server represents the API server
type Server struct {
	router *gin.Engine
	logger *zap.Logger
	deps   Deps
	opts   Options
}

// NewServer creates a new API server
func NewServer(logger *zap.Logger, deps Deps, opts Options) (*Server, error) {
	if opts.OTPRate == "" {
		opts.OTPRate = "5-M"
	}
	server := &Server{logger: logger.Named("api"), deps: deps, opts: opts}

	apiutil.RegisterJSONFieldNames()

	router := gin.New()
	router.Use(ginzap.GinzapWithConfig(logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		// The websocket token travels in the query string; the hub logs
		// connects without it.
		SkipPaths: []string{wsPath},
	}))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware("foodhub-api"))
	router.Use(apiutil.MetricsMiddleware())
	router.Use(apiutil.ProblemMiddleware())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	}
	router.Use(cors.New(corsCfg))

	rate, err := limiter.NewRateFromFormatted(opts.OTPRate)
	if err != nil {
		return nil, err
	}
	otpLimiter := ginlimiter.NewMiddleware(limiter.New(memory.NewStore(), rate),
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			c.Header("Content-Type", "application/problem+json")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"type":   "about:blank",
				"title":  "Too Many Requests",
				"status": http.StatusTooManyRequests,
				"detail": "too many code requests, try again later",
			})
		}))

	server.router = router
	server.registerRoutes(otpLimiter)
	return server, nil
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes(otpLimiter gin.HandlerFunc) {
	public := s.router.Group("/api/v1")
	{
		public.GET("/metrics", gin.WrapH(promhttp.Handler()))
		public.GET("/health", s.healthCheck)
		public.GET("/store/status", s.storeStatus)
		public.GET("/ws", s.authMiddleware(headerOrQueryToken), s.serveWS)
		public.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		auth := public.Group("/auth")
		{
			auth.POST("/otp", otpLimiter, s.requestOTP)
			auth.POST("/otp/verify", s.verifyOTP)
			auth.POST("/login", s.login)
		}
	}

	protected := s.router.Group("/api/v1")
	protected.Use(s.authMiddleware(headerToken))
	{
		protected.POST("/orders", s.createOrder)
		protected.GET("/orders", s.listOrders)
		protected.GET("/orders/:id", s.getOrder)

		operator := protected.Group("")
		operator.Use(requireOperator())
		{
			operator.PATCH("/orders/:id/status", s.changeStatus)
			operator.GET("/orders/:id/history", s.orderHistory)
			operator.GET("/settings", s.listSettings)
			operator.PATCH("/settings/:key", s.updateSetting)
		}
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().UTC(),
	})
}
