// Package server assembles the HTTP surface and runs it until shutdown.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/admin"
	"github.com/mikepea/recipebox/pkg/recipebox/apikeys"
	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/config"
	"github.com/mikepea/recipebox/pkg/recipebox/importexport"
	"github.com/mikepea/recipebox/pkg/recipebox/logger"
	"github.com/mikepea/recipebox/pkg/recipebox/media"
	"github.com/mikepea/recipebox/pkg/recipebox/metrics"
	"github.com/mikepea/recipebox/pkg/recipebox/recipes"
	"github.com/mikepea/recipebox/pkg/recipebox/tags"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Deps are the collaborators the router needs.
type Deps struct {
	DB      *gorm.DB
	Store   media.BlobStore
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.HTTPMetrics
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewHTTPMetrics()
	}
	cfg := d.Config

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(logger.Middleware(d.Logger), d.Metrics.Middleware(), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	// Uploaded images are only served from disk for the local backend
	if local, ok := d.Store.(*media.LocalStore); ok {
		r.Static(cfg.Media.URLPrefix, local.Dir())
	}

	recipeSvc := recipes.NewService(d.DB, d.Store, cfg.Media.MaxUploadBytes)
	minPassword := cfg.Auth.MinPasswordLength

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "recipebox",
			})
		})

		// Auth routes (public, /me guards itself)
		authHandler := auth.NewHandler(d.DB, minPassword)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Combined auth middleware (accepts JWT or API key)
		keySvc := apikeys.NewService(d.DB)
		combinedAuth := apikeys.CombinedAuthMiddleware(d.DB, keySvc)

		// API keys routes (JWT only - need to be logged in to manage keys)
		apikeys.NewHandler(keySvc).RegisterRoutes(api.Group("", auth.AuthMiddleware(d.DB)))

		// Recipe, tag and ingredient routes (protected - accepts JWT or API key)
		recipeRoutes := api.Group("", combinedAuth)
		recipes.NewHandler(recipeSvc).RegisterRoutes(recipeRoutes)
		tags.NewTagHandler(d.DB).RegisterRoutes(recipeRoutes)
		tags.NewIngredientHandler(d.DB).RegisterRoutes(recipeRoutes)

		// Import/Export routes (protected - accepts JWT or API key)
		importexport.NewHandler(recipeSvc).RegisterRoutes(api.Group("", combinedAuth))

		// Admin routes (staff only)
		adminGroup := api.Group("/admin", combinedAuth, auth.RequireStaff())
		admin.NewHandler(d.DB, minPassword).RegisterRoutes(adminGroup)
	}

	return r
}

// Run serves handler on cfg.Port until ctx is cancelled, then drains
// in-flight requests for at most cfg.ShutdownTimeout.
func Run(ctx context.Context, cfg config.ServerConfig, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:         net.JoinHostPort("", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting recipebox server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
