package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/shopAuth"
	"github.com/MrEthical07/shopAuth/commerce"
	"github.com/MrEthical07/shopAuth/middleware"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	Logger         *zap.Logger
	// MetricsHandler, when set, is mounted at MetricsPath.
	MetricsHandler http.Handler
	MetricsPath    string
}

// Handler groups the route handlers and their collaborators.
type Handler struct {
	engine   *shopAuth.Engine
	profiles *commerce.ProfileManager
	carts    *commerce.CartManager
	logger   *zap.Logger
}

// NewHandler returns a Handler. logger may be nil.
func NewHandler(engine *shopAuth.Engine, profiles *commerce.ProfileManager, carts *commerce.CartManager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:   engine,
		profiles: profiles,
		carts:    carts,
		logger:   logger.Named("http"),
	}
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	r.Use(middleware.RequestContext())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(opts.MetricsHandler))
	}

	auth := r.Group("/a/auth")
	{
		auth.POST("/generateOTP", h.GenerateOTP)
		auth.POST("/verifyOTP", h.VerifyOTP)
		auth.POST("/login/email", h.LoginEmail)
		auth.POST("/login/password", h.LoginPassword)
		auth.POST("/login/register", h.Register)
		auth.POST("/verifyToken", h.VerifyToken)
	}

	requireToken := middleware.RequireToken(h.engine)

	profile := r.Group("/a/profile", requireToken)
	{
		profile.GET("/my", h.GetProfile)
		profile.PATCH("/my", h.UpdateProfile)
		profile.POST("/phone", middleware.RequirePhoneGrant(h.engine), h.AttachPhone)
	}

	cart := r.Group("/a/cart", requireToken)
	{
		cart.POST("/add", h.AddToCart)
		cart.POST("/remove", h.RemoveFromCart)
		cart.GET("/", h.GetCart)
		cart.DELETE("/", h.ClearCart)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.PhoneGrantHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	return cfg
}
