package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"carparts-storefront/internal/client"
	"carparts-storefront/internal/config"
	"carparts-storefront/internal/mailer"
	"carparts-storefront/internal/repository"
	"carparts-storefront/internal/server"
	"carparts-storefront/internal/service"
	"carparts-storefront/internal/session"
	"carparts-storefront/internal/storage"
	"carparts-storefront/internal/validate"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
)

const sessionPurgeInterval = time.Hour

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(&cfg.Log)

	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to init database: %v", err)
	}

	var rdb *redis.Client
	if cfg.Session.Backend == "redis" {
		rdb, err = client.InitRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to init redis: %v", err)
		}
		defer rdb.Close()
	}

	sessions, err := session.NewStore(&cfg.Session, db, rdb)
	if err != nil {
		logger.Fatalf("Failed to init session store: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	verificationRepo := repository.NewEmailVerificationRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	checkoutRepo := repository.NewCheckoutSessionRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	v := validate.New()
	stripeClient := client.NewStripeClient(&cfg.Stripe)
	couponService := service.NewCouponService(couponRepo, v)

	services := server.Services{
		Guard: service.NewAuthGuard(sessions, userRepo),
		Auth: service.NewAuthService(
			db,
			service.AuthConfig{VerificationTTL: cfg.Auth.VerificationTTL, VerifyURL: cfg.Auth.VerifyURL},
			sessions,
			userRepo,
			profileRepo,
			verificationRepo,
			mailer.NewLogMailer(logger),
			v,
			logger,
		),
		Products: service.NewProductService(
			productRepo,
			storage.NewLocalImageStore(cfg.Upload.Dir, cfg.Upload.PublicPath, cfg.Upload.MaxBytes),
			cfg.Upload.MaxBytes,
			v,
		),
		Coupons: couponService,
		Checkout: service.NewCheckoutService(
			db,
			service.CheckoutConfig{
				Currency:         cfg.Stripe.Currency,
				SuccessURL:       cfg.Stripe.SuccessURL,
				CancelURL:        cfg.Stripe.CancelURL,
				WebhookSecret:    cfg.Stripe.WebhookSecret,
				WebhookTolerance: cfg.Stripe.WebhookTolerance,
			},
			stripeClient,
			productRepo,
			orderRepo,
			couponRepo,
			checkoutRepo,
			webhookEventRepo,
			couponService,
			v,
			logger,
		),
		Users:  service.NewUserService(userRepo, orderRepo, v, logger),
		Orders: service.NewOrderService(orderRepo, logger),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if purger, ok := sessions.(session.Purger); ok {
		go purgeSessions(ctx, purger, logger)
	}

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(cfg, logger, services)

	logger.Infof("Starting HTTP server on %s (env=%s, sessions=%s)", serverAddr, cfg.Environment.Name, cfg.Session.Backend)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("Signal received, starting graceful shutdown...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server shutdown error: %v", err)
	}
}

func newLogger(cfg *config.Log) *log.Logger {
	logger := log.New("carparts")
	logger.SetOutput(os.Stdout)

	switch strings.ToLower(cfg.Level) {
	case "debug":
		logger.SetLevel(log.DEBUG)
	case "warn":
		logger.SetLevel(log.WARN)
	case "error":
		logger.SetLevel(log.ERROR)
	default:
		logger.SetLevel(log.INFO)
	}

	if cfg.Format == "text" {
		logger.SetHeader("${time_rfc3339} ${level} ${short_file}:${line}")
	}
	return logger
}

// purgeSessions drops expired sessions until ctx is cancelled.
func purgeSessions(ctx context.Context, store session.Purger, logger *log.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Warnf("purge expired sessions: %v", err)
				continue
			}
			if n > 0 {
				logger.Debugf("purged %d expired sessions", n)
			}
		}
	}
}
