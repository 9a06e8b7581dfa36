package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/tutti/internal/logger"
	"github.com/layer-3/tutti/ports"
	"github.com/layer-3/tutti/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig bundles everything the router serves
type RouterConfig struct {
	Auth      *service.AuthService
	Directory *service.DirectoryService
	Cookie    CookieConfig
	Recorder  ports.AuthRecorder
	Gatherer  prometheus.Gatherer
	Logger    *logger.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(cfg.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// Create handlers
	auth := NewAuthHandlers(cfg.Auth, cfg.Cookie, cfg.Logger)
	dir := NewDirectoryHandlers(cfg.Directory, cfg.Logger)
	requireAuth := AuthMiddleware(cfg.Auth, cfg.Cookie.name(), cfg.Recorder, cfg.Logger)

	v1 := router.Group("/v1")

	// Auth routes
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", auth.SignUp)
		authRoutes.POST("/login", auth.Login)
		authRoutes.POST("/logout", auth.Logout)
	}

	// Protected API routes
	protected := v1.Group("")
	protected.Use(requireAuth)
	{
		protected.PUT("/auth/password", auth.ResetPassword)
		protected.GET("/auth/profile", auth.Profile)
		protected.GET("/auth/me", auth.Me)

		protected.GET("/users/:id", dir.GetUser)
		protected.PUT("/users", dir.UpdateUser)
		protected.DELETE("/users", dir.DeleteUser)

		protected.GET("/instruments", dir.ListInstruments)

		protected.GET("/user-instruments", dir.ListUserInstruments)
		protected.POST("/user-instruments", dir.CreateUserInstrument)
		protected.PUT("/user-instruments/:instrumentId", dir.UpdateUserInstrument)
		protected.DELETE("/user-instruments/:instrumentId", dir.DeleteUserInstrument)

		protected.GET("/ensembles", dir.ListEnsembles)
		protected.POST("/ensembles", dir.CreateEnsemble)
		protected.GET("/ensembles/:id", dir.GetEnsemble)
		protected.PUT("/ensembles/:id", dir.UpdateEnsemble)
		protected.DELETE("/ensembles/:id", dir.DeleteEnsemble)
	}

	return router
}
