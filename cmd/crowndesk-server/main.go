package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/config"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/billing"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/insurance"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/patient"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/scheduling"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/domain/tenant"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/platform/db"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/platform/middleware"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/pms/opendental"
	"github.com/roshan1595/crowndesk-backend-sub002/internal/sync"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crowndesk-server",
		Short: "CrownDesk practice API and PMS sync engine",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(syncCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the scheduled sync sweep",
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
			schema, _ := cmd.Flags().GetString("schema")
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

			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
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

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant and create its schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, _ := cmd.Flags().GetString("slug")
			name, _ := cmd.Flags().GetString("name")
			dir, _ := cmd.Flags().GetString("dir")
			if slug == "" {
				return fmt.Errorf("--slug is required")
			}
			if name == "" {
				name = slug
			}

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

			t := &tenant.Tenant{Slug: slug, Name: name, LifecycleState: tenant.StateActive}
			if err := t.Validate(); err != nil {
				return err
			}
			if err := tenant.NewRepoPG(pool).Create(ctx, t); err != nil {
				return fmt.Errorf("register tenant: %w", err)
			}

			fmt.Printf("Creating tenant schema: tenant_%s\n", slug)
			if err := db.NewMigrator(pool, dir).SetupTenant(ctx, slug); err != nil {
				return err
			}
			fmt.Println("Tenant created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("slug", "", "Tenant identifier (alphanumeric)")
	createCmd.Flags().String("name", "", "Display name (defaults to slug)")
	createCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(createCmd)

	return cmd
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a sync from the command line",
	}

	fullCmd := &cobra.Command{
		Use:   "full",
		Short: "Run a dependency-ordered full sync for one tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, _ := cmd.Flags().GetString("tenant")
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}

			logger, svc, cleanup, err := buildSyncService()
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := svc.FullSync(context.Background(), tenantID)
			for entity, res := range results {
				fmt.Printf("%-22s created=%d updated=%d skipped=%d errors=%d\n",
					entity, res.Created, res.Updated, res.Skipped, res.Errors)
			}
			if err != nil {
				logger.Error().Err(err).Msg("full sync failed")
				return err
			}
			return nil
		},
	}
	fullCmd.Flags().String("tenant", "", "Tenant slug")
	cmd.AddCommand(fullCmd)

	runCmd := &cobra.Command{
		Use:   "run [entity]",
		Short: "Run a single entity sync for one tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, _ := cmd.Flags().GetString("tenant")
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}

			_, svc, cleanup, err := buildSyncService()
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.TriggerSync(context.Background(), tenantID, sync.EntityType(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("created=%d updated=%d skipped=%d errors=%d\n",
				res.Created, res.Updated, res.Skipped, res.Errors)
			return nil
		},
	}
	runCmd.Flags().String("tenant", "", "Tenant slug")
	cmd.AddCommand(runCmd)

	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// newSyncService wires the engine from config. The lease store is Redis-backed
// when REDIS_URL is set (required for multi-instance deployments), in-process
// otherwise.
func newSyncService(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*sync.Service, error) {
	var leases sync.LeaseStore
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		leases = sync.NewRedisLeaseStore(redis.NewClient(redisOpts))
		logger.Info().Msg("using redis-backed sync leases")
	} else {
		leases = sync.NewMemoryLeaseStore()
		logger.Warn().Msg("REDIS_URL not set; sync leases are per-process only")
	}

	deps := sync.Deps{
		Adapter:        opendental.NewClient(cfg.PMSBaseURL, cfg.PMSAPIKey),
		Pool:           pool,
		Watermarks:     sync.NewWatermarkStorePG(pool, cfg.PMSExternalSystem),
		Mappings:       sync.NewMappingStorePG(pool, cfg.PMSExternalSystem),
		Leases:         leases,
		Tenants:        tenant.NewRepoPG(pool),
		Patients:       patient.NewRepoPG(pool),
		Families:       patient.NewFamilyRepoPG(pool),
		Appointments:   scheduling.NewAppointmentRepoPG(pool),
		Providers:      scheduling.NewProviderRepoPG(pool),
		Operatories:    scheduling.NewOperatoryRepoPG(pool),
		Policies:       insurance.NewRepoPG(pool),
		Procedures:     billing.NewProcedureRepoPG(pool),
		ProcedureCodes: billing.NewProcedureCodeRepoPG(pool),
	}
	opts := sync.Options{
		ExternalSystem: cfg.PMSExternalSystem,
		LeaseTTL:       time.Duration(cfg.SyncLeaseTTLSeconds) * time.Second,
		TenantWorkers:  cfg.SyncTenantWorkers,
	}
	return sync.NewService(deps, opts, logger), nil
}

// buildSyncService is the CLI variant of the serve wiring: config, pool,
// service, plus a cleanup closing the pool.
func buildSyncService() (zerolog.Logger, *sync.Service, func(), error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return logger, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return logger, nil, nil, err
	}

	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return logger, nil, nil, err
	}

	svc, err := newSyncService(cfg, pool, logger)
	if err != nil {
		pool.Close()
		return logger, nil, nil, err
	}
	return logger, svc, pool.Close, nil
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	svc, err := newSyncService(cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire sync engine")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))
	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))

	e.GET("/health", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	sync.NewHandler(svc).RegisterRoutes(apiV1)

	scheduler, err := sync.NewScheduler(svc, cfg.SyncIntervalMinutes, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create sync scheduler")
	}
	scheduler.Start()
	logger.Info().Int("interval_minutes", cfg.SyncIntervalMinutes).Msg("sync scheduler started")

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}
