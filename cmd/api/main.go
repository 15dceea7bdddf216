package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lamnguyen/vestika-backend/api/routes"
	authsvc "github.com/lamnguyen/vestika-backend/internal/auth"
	cartsvc "github.com/lamnguyen/vestika-backend/internal/cart"
	"github.com/lamnguyen/vestika-backend/internal/inventory"
	"github.com/lamnguyen/vestika-backend/internal/notifications"
	ordersvc "github.com/lamnguyen/vestika-backend/internal/orders"
	productsvc "github.com/lamnguyen/vestika-backend/internal/products"
	reviewsvc "github.com/lamnguyen/vestika-backend/internal/reviews"
	usersvc "github.com/lamnguyen/vestika-backend/internal/users"
	"github.com/lamnguyen/vestika-backend/pkg/config"
	"github.com/lamnguyen/vestika-backend/pkg/db"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
	"github.com/lamnguyen/vestika-backend/pkg/mailer"
	"github.com/lamnguyen/vestika-backend/pkg/migrate"
	"github.com/lamnguyen/vestika-backend/pkg/redis"
	"github.com/lamnguyen/vestika-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient.DB()); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var gcsClient *gcs.Client
	if cfg.GCS.BucketName != "" {
		gcsClient, err = gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap gcs", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "gcs bucket not configured, image uploads disabled")
	}

	var mailSender mailer.Sender
	if cfg.SMTP.Host != "" {
		smtp, err := mailer.New(cfg.SMTP, cfg.Frontend, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap mailer", err)
			os.Exit(1)
		}
		mailSender = smtp
	} else {
		logg.Warn(context.Background(), "smtp not configured, password reset mail disabled")
	}

	googleClient := authsvc.NewGoogleClient(cfg.GoogleOAuth)
	if googleClient == nil {
		logg.Warn(context.Background(), "google oauth not configured, google login disabled")
	}

	gdb := dbClient.DB()
	usersRepo := usersvc.NewRepository(gdb)
	invRepo := inventory.NewRepository(gdb)
	productsRepo := productsvc.NewRepository(gdb)
	notificationsRepo := notifications.NewRepository(gdb)

	authService, err := authsvc.NewService(usersRepo, googleClient, mailSender, cfg.JWT, cfg.Password, logg)
	exitOn(logg, "auth service", err)

	usersService, err := usersvc.NewService(usersRepo)
	exitOn(logg, "users service", err)

	productsService, err := productsvc.NewService(productsRepo, invRepo, dbClient)
	exitOn(logg, "products service", err)

	cartService, err := cartsvc.NewService(cartsvc.NewRepository(gdb), invRepo, dbClient, cfg.Inventory, logg)
	exitOn(logg, "cart service", err)

	ordersService, err := ordersvc.NewService(ordersvc.NewRepository(gdb), invRepo, productsRepo, notificationsRepo, dbClient, cfg.Inventory, logg)
	exitOn(logg, "orders service", err)

	reviewsService, err := reviewsvc.NewService(reviewsvc.NewRepository(gdb), dbClient)
	exitOn(logg, "reviews service", err)

	notificationsService, err := notifications.NewService(notificationsRepo)
	exitOn(logg, "notifications service", err)

	deps := routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DBPinger:      dbClient,
		Redis:         redisClient,
		Auth:          authService,
		Users:         usersService,
		Products:      productsService,
		Cart:          cartService,
		Orders:        ordersService,
		Reviews:       reviewsService,
		Notifications: notificationsService,
	}
	if gcsClient != nil {
		deps.GCSPinger = gcsClient
		deps.Uploader = gcsClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func exitOn(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
