package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/uniclinic/uniclinic/internal/config"
	"github.com/uniclinic/uniclinic/internal/domain/inventory"
	"github.com/uniclinic/uniclinic/internal/domain/medrecord"
	"github.com/uniclinic/uniclinic/internal/domain/pharmacy"
	"github.com/uniclinic/uniclinic/internal/domain/prescription"
	"github.com/uniclinic/uniclinic/internal/domain/queue"
	"github.com/uniclinic/uniclinic/internal/platform/auth"
	"github.com/uniclinic/uniclinic/internal/platform/db"
	"github.com/uniclinic/uniclinic/internal/platform/localstore"
	"github.com/uniclinic/uniclinic/internal/platform/middleware"
	"github.com/uniclinic/uniclinic/internal/platform/monitor"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "University clinic management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the seed medicine dataset and create an admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("admin-email")
			password, _ := cmd.Flags().GetString("admin-password")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			invRepo := inventory.NewRepoPG(pool)
			for _, m := range inventory.SeedMedicines() {
				if err := invRepo.Create(ctx, m); err != nil {
					return fmt.Errorf("seed medicine %s: %w", m.Name, err)
				}
			}
			fmt.Println("Seed medicines loaded.")

			if email != "" {
				issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL())
				authSvc := auth.NewService(auth.NewUserRepoPG(pool), issuer)
				if _, err := authSvc.Register(ctx, email, password, "Administrator", auth.RoleAdmin); err != nil {
					return fmt.Errorf("create admin user: %w", err)
				}
				fmt.Printf("Admin user %s created.\n", email)
			}
			return nil
		},
	}
	cmd.Flags().String("admin-email", "", "Admin account email")
	cmd.Flags().String("admin-password", "", "Admin account password (min 8 characters)")
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Primary store. A connection failure is not fatal: the local mirror
	// serves every queue, prescription and inventory operation until the
	// database comes back at a restart.
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Warn().Err(err).Msg("database unavailable, serving from the local fallback store")
		pool = nil
	} else {
		defer pool.Close()
		logger.Info().Msg("connected to database")
	}

	store, err := localstore.New(cfg.FallbackDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.FallbackDir).Msg("failed to open fallback store")
	}

	// Repositories: Postgres primary wrapped with the local mirror.
	invLocal, err := inventory.NewRepoLocal(store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open inventory fallback")
	}
	rxLocal, err := prescription.NewRepoLocal(store, cfg.QueueNumberPrefix, int64(cfg.CounterStart))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open prescription fallback")
	}
	qLocal, err := queue.NewRepoLocal(store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open queue fallback")
	}
	recLocal, err := medrecord.NewRepoLocal(store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open medical record fallback")
	}

	invRepo := inventory.Repository(invLocal)
	rxRepo := prescription.Repository(rxLocal)
	qRepo := queue.Repository(qLocal)
	recRepo := medrecord.Repository(recLocal)
	if pool != nil {
		invRepo = inventory.NewRepoFallback(inventory.NewRepoPG(pool), invLocal, logger)
		rxRepo = prescription.NewRepoFallback(prescription.NewRepoPG(pool, cfg.QueueNumberPrefix), rxLocal, logger)
		qRepo = queue.NewRepoFallback(queue.NewRepoPG(pool), qLocal, logger)
		recRepo = medrecord.NewRepoFallback(medrecord.NewRepoPG(pool), recLocal, logger)
	}

	// Services
	invSvc := inventory.NewService(invRepo)
	rxSvc := prescription.NewService(rxRepo)
	qSvc := queue.NewService(qRepo)
	recSvc := medrecord.NewService(recRepo)
	pharmacySvc := pharmacy.NewService(rxSvc, invSvc, qSvc, logger)

	mon := monitor.New(invSvc, cfg.MonitorPollInterval(), logger)
	mon.Start()
	defer mon.Stop()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL())

	// login/register stay outside the auth guard; everything else under
	// /api requires a role.
	public := e.Group("/api")
	public.Use(middleware.RateLimit(rateLimitCfg))

	api := e.Group("/api")
	api.Use(middleware.RateLimit(rateLimitCfg))
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware(issuer))
	}

	inventory.NewHandler(invSvc).RegisterRoutes(api)
	prescription.NewHandler(rxSvc).RegisterRoutes(api)
	queue.NewHandler(qSvc).RegisterRoutes(api)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(api)
	medrecord.NewHandler(recSvc).RegisterRoutes(api)
	monitor.NewHandler(mon, invSvc).RegisterRoutes(api)

	// User accounts live in Postgres only; without it the dev middleware is
	// the only way in.
	if pool != nil {
		authSvc := auth.NewService(auth.NewUserRepoPG(pool), issuer)
		auth.NewHandler(authSvc).RegisterRoutes(public, api)
	} else {
		logger.Warn().Msg("auth endpoints disabled: no database connection")
	}

	e.GET("/health", func(c echo.Context) error {
		payload := map[string]any{
			"status":  "ok",
			"version": "0.1.0",
			"monitor": mon.Running(),
		}
		if pool != nil {
			payload["database"] = db.GetPoolStats(pool)
		} else {
			payload["database"] = "unavailable"
		}
		return c.JSON(http.StatusOK, payload)
	})

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
