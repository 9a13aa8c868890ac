package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neraa-rental/orders-api/config"
	"github.com/neraa-rental/orders-api/logger"
	"github.com/neraa-rental/orders-api/repository"
	"github.com/neraa-rental/orders-api/services"
	"github.com/neraa-rental/orders-api/utils"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "orders-api",
		Short:        "Neraa rental order workflow API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newCreateAdminCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var username, password, fullName, email string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.NewForEnvironment(cfg.GoEnv, cfg.LogLevel, cfg.LogFormat)
			defer func() { _ = log.Sync() }()

			db, err := openDatabase(cfg, log)
			if err != nil {
				return err
			}

			staff := services.NewStaffService(repository.NewStaffRepository(db), newTokenService(cfg), log)
			user, err := staff.BootstrapAdmin(cmd.Context(), services.CreateStaffInput{
				Username: username,
				Password: password,
				FullName: fullName,
				Email:    email,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Admin %q created with id %d\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password (defaults to $ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "admin full name")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	return cmd
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewForEnvironment(cfg.GoEnv, cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()
	log.Info("Starting Neraa orders API", zap.String("env", cfg.GoEnv))

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize application", zap.Error(err))
		return err
	}
	defer app.Close()

	router, err := setupRouter(cfg, log)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server is running", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// application owns the long-lived resources behind the services
type application struct {
	closers []func()
}

// newApplication connects storage, locking and rendering backends and
// installs the services used by the HTTP handlers
func newApplication(ctx context.Context, cfg *config.Config, log *zap.Logger) (*application, error) {
	app := &application{}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	var images services.ImageService
	switch cfg.StorageBackend {
	case config.StorageS3:
		store, err := services.NewS3ObjectStore(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3: %w", err)
		}
		images = services.InitImageService(store)
	default:
		utils.UploadDir = cfg.UploadDir
		images = services.InitLocalImageService(cfg.UploadDir)
	}
	log.Info("Image storage ready", zap.String("backend", cfg.StorageBackend))

	var locker services.OrderLocker
	switch cfg.LockBackend {
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		app.closers = append(app.closers, func() { _ = client.Close() })
		locker = services.NewRedisOrderLocker(client, cfg.LockTimeout)
	default:
		locker = services.NewMemoryOrderLocker(cfg.LockTimeout)
	}
	log.Info("Order locking ready", zap.String("backend", cfg.LockBackend))

	renderer := services.NewChromedpBillRenderer(services.ChromedpConfig{
		CompanyName: cfg.CompanyName,
		RemoteURL:   cfg.ChromeRemoteURL,
		Timeout:     cfg.RenderTimeout,
		NoSandbox:   os.Geteuid() == 0,
		Logger:      log,
	})
	app.closers = append(app.closers, renderer.Close)

	wireServices(cfg, db, images, locker, renderer, log)
	return app, nil
}

// Close releases resources in reverse order of acquisition
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := config.ConnectDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := config.AutoMigrate(db); err != nil {
		return nil, err
	}
	log.Info("Database migration completed successfully")
	return db, nil
}

func newTokenService(cfg *config.Config) *services.TokenService {
	return services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
}

// wireServices installs the services the HTTP handlers look up
func wireServices(cfg *config.Config, db *gorm.DB, images services.ImageService, locker services.OrderLocker, renderer services.BillRenderer, log *zap.Logger) {
	config.SetDB(db)
	config.SetConfig(cfg)

	orders := repository.NewOrderRepository(db)
	staff := repository.NewStaffRepository(db)

	services.SetImageService(images)
	services.SetOrderService(services.NewOrderService(orders, images, locker, services.WithOrderLogger(log)))
	services.SetDashboardService(services.NewDashboardService(orders, staff))
	services.SetReportService(services.NewReportService(orders, renderer, cfg.RenderTimeout, log))
	services.SetStaffService(services.NewStaffService(staff, newTokenService(cfg), log))
}
