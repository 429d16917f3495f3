package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"cnoloyalty/internal/account"
	"cnoloyalty/internal/auth"
	"cnoloyalty/internal/balance"
	"cnoloyalty/internal/config"
	"cnoloyalty/internal/coupon"
	"cnoloyalty/internal/db"
	"cnoloyalty/internal/email"
	"cnoloyalty/internal/identity"
	"cnoloyalty/internal/ledger"
	"cnoloyalty/internal/logger"
	"cnoloyalty/internal/payment"
	"cnoloyalty/internal/profile"
	"cnoloyalty/internal/redemption"
	"cnoloyalty/internal/rewards"
	"cnoloyalty/internal/server"
	"cnoloyalty/internal/square"
	"cnoloyalty/internal/supabase"
)

// @title C&O Loyalty API
// @version 1.0
// @description Points ledger, reward redemption and Square payment crediting for C&O Coffee.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.apikey APIKeyAuth
// @in header
// @name X-API-Key
func main() {
	logger.Init()
	logger.Info("Starting loyalty service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Warn("Redis unreachable at startup, continuing without cache", "addr", cfg.RedisAddr, "error", err)
	}

	catalog := rewards.Default()
	if cfg.RewardsFile != "" {
		if catalog, err = rewards.LoadFile(cfg.RewardsFile); err != nil {
			logger.Fatalf("Failed to load rewards: %v", err)
		}
	}
	logger.Info("Reward catalog loaded", "rewards", len(catalog.All()))

	balances := balance.NewRepository(database)
	ledgerRepo := ledger.NewRepository(database, balances)
	coupons := coupon.NewRepository(database)

	directory := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.UpstreamTimeout)
	squareClient := square.NewClient(cfg.SquareBaseURL(), cfg.SquareAccessToken, cfg.UpstreamTimeout)

	var verifier auth.TokenVerifier = directory.Verifier()
	if cfg.SupabaseJWTSecret != "" {
		if verifier, err = auth.NewJWTVerifier(cfg.SupabaseJWTSecret); err != nil {
			logger.Fatalf("Failed to set up token verification: %v", err)
		}
		logger.Info("Verifying access tokens locally")
	}

	emailService := email.New(email.Config{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPass,
	}, rdb)
	defer emailService.Close()

	resolver := identity.NewResolver(
		identity.NewRepository(database),
		identity.NewRedisCache(rdb),
		squareClient,
		directory,
		cfg.UpstreamTimeout,
	)

	verifierHMAC := payment.NewVerifier(cfg.SquareWebhookSignatureKey, cfg.SquareWebhookNotificationURL)
	if !verifierHMAC.Enabled() {
		logger.Warn("SQUARE_WEBHOOK_SIGNATURE_KEY not set, webhook signatures are not checked")
	}
	ingest := payment.NewService(verifierHMAC, resolver, ledgerRepo, payment.NewOrderRepository(database), cfg.UpstreamTimeout)

	redeem := redemption.NewService(
		database,
		catalog,
		balances,
		ledgerRepo,
		coupons,
		coupon.NewGenerator(cfg.CouponPrefix),
		emailService,
		cfg.CouponTTL,
	)

	srv := server.New(server.Handlers{
		Rewards:    rewards.NewHandler(catalog),
		Redemption: redemption.NewHandler(redeem),
		Payment:    payment.NewHandler(ingest),
		Profile:    profile.NewHandler(directory),
		Account:    account.NewHandler(balances, ledgerRepo, coupons),
		POS:        account.NewPOSHandler(coupons, directory, emailService),
		Stats:      account.NewStatsHandler(ledger.NewAnalytics(database)),
	}, server.Options{
		Port:         cfg.Port,
		Verifier:     verifier,
		POSAPIKey:    cfg.POSAPIKey,
		WebhookRPS:   cfg.WebhookRateLimitRPS,
		WebhookBurst: cfg.WebhookRateLimitBurst,
		Database:     database.PingContext,
		Redis:        func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		emailService.Start(ctx)
	}()
	go func() {
		defer workers.Done()
		balance.NewReconciler(balances).Run(ctx, cfg.ReconcileInterval)
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	cancel()
	workers.Wait()
	ingest.Wait()

	logger.Info("Server stopped")
}
