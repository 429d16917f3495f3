package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cnoloyalty/internal/account"
	"cnoloyalty/internal/auth"
	"cnoloyalty/internal/payment"
	"cnoloyalty/internal/profile"
	"cnoloyalty/internal/redemption"
	"cnoloyalty/internal/rewards"
)

type Handlers struct {
	Rewards    *rewards.Handler
	Redemption *redemption.Handler
	Payment    *payment.Handler
	Profile    *profile.Handler
	Account    *account.Handler
	POS        *account.POSHandler
	Stats      *account.StatsHandler
}

type Options struct {
	Port         string
	Verifier     auth.TokenVerifier
	POSAPIKey    string
	WebhookRPS   float64
	WebhookBurst int
	Database     Check
	Redis        Check
}

type Server struct {
	router  *gin.Engine
	http    *http.Server
	limiter *RateLimiter
}

func New(h Handlers, opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLoggingMiddleware(), MetricsMiddleware(), corsMiddleware())

	router.GET("/health", Health(opts.Database, opts.Redis))
	router.GET("/metrics", Metrics())
	router.GET("/rewards", h.Rewards.List)

	limiter := NewRateLimiter(opts.WebhookRPS, opts.WebhookBurst, 3*time.Minute)
	router.POST("/webhooks/square", limiter.Middleware(), h.Payment.Webhook)

	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(opts.Verifier))
	{
		protected.POST("/rewards/redeem", h.Redemption.Redeem)
		protected.POST("/profile", h.Profile.Upsert)
		protected.GET("/me/balance", h.Account.GetBalance)
		protected.GET("/me/ledger", h.Account.ListLedger)
		protected.GET("/me/coupons", h.Account.ListCoupons)
		protected.GET("/me/coupons/:couponID", h.Account.GetCoupon)
	}

	pos := router.Group("/pos")
	pos.Use(auth.RequireAPIKey(opts.POSAPIKey))
	{
		pos.POST("/coupons/:code/redeem", h.POS.RedeemCoupon)
		pos.GET("/stats", h.Stats.Daily)
	}

	return &Server{
		router:  router,
		limiter: limiter,
		http: &http.Server{
			Addr:              ":" + opts.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, Idempotency-Key, X-API-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
