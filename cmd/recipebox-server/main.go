package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/config"
	"github.com/mikepea/recipebox/pkg/recipebox/database"
	"github.com/mikepea/recipebox/pkg/recipebox/logger"
	"github.com/mikepea/recipebox/pkg/recipebox/media"
	"github.com/mikepea/recipebox/pkg/recipebox/metrics"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recipebox-server",
		Short:         "Recipe API with per-user tags and ingredients",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "wait-for-db",
			Short: "Block until the database accepts connections",
			RunE:  runWaitForDB,
		},
		newCreateSuperuserCmd(),
	)
	return root
}

// bootstrap loads configuration, installs the logger and signing key and
// connects to a migrated database.
func bootstrap(ctx context.Context) (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	l, err := logger.Init(cfg.Log.Level, cfg.Server.Env)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	auth.SetSigningKey(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	db, err := database.WaitFor(ctx, cfg.Database, l)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	l.Info("Database migrations completed")
	return cfg, l, db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, l, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer l.Sync()

	store, err := media.New(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("open media store: %w", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	router := server.NewRouter(server.Deps{
		DB:      db,
		Store:   store,
		Config:  cfg,
		Logger:  l,
		Metrics: metrics.NewHTTPMetrics(),
	})

	if err := server.Run(ctx, cfg.Server, router, l); err != nil {
		return err
	}
	l.Info("Server stopped")
	return nil
}

func runWaitForDB(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	l, err := logger.Init(cfg.Log.Level, cfg.Server.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	db, err := database.WaitFor(cmd.Context(), cfg.Database, l)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	return nil
}

func newCreateSuperuserCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create a staff account with superuser rights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, l, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			users := auth.NewUserService(db, cfg.Auth.MinPasswordLength)
			user, err := users.Create(cmd.Context(), auth.NewUser{
				Email:       email,
				Password:    password,
				Name:        name,
				IsSuperuser: true,
			})
			if err != nil {
				return err
			}
			l.Info("Created superuser", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	cmd.Flags().StringVar(&name, "name", "Admin", "display name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
