package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/upgradeforless/UpgradeForLess/config"
	"github.com/upgradeforless/UpgradeForLess/controllers"
	"github.com/upgradeforless/UpgradeForLess/gateway"
	"github.com/upgradeforless/UpgradeForLess/repository"
	"github.com/upgradeforless/UpgradeForLess/routes"
	"github.com/upgradeforless/UpgradeForLess/services"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

func main() {
	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize logger
	if err := utils.InitLogger(cfg.Env); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer utils.SyncLogger()

	if cfg.RazorpayWebhookSecret == "" {
		utils.LogError("RAZORPAY_WEBHOOK_SECRET is not set; razorpay webhooks will be rejected")
	}
	if cfg.CashfreeWebhookSecret == "" {
		utils.LogError("CASHFREE_WEBHOOK_SECRET is not set; cashfree webhooks will be rejected")
	}
	if cfg.WebhookVerifyMode == utils.VerifyModeLogOnly {
		utils.LogWarn("WEBHOOK_VERIFY_MODE=log_only: unsigned webhooks will be applied")
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.LogError("Failed to connect to database: %v", err)
		log.Fatal("Failed to connect to database:", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database handle:", err)
	}
	defer sqlDB.Close()

	checks := map[string]controllers.HealthCheck{
		"database": sqlDB.PingContext,
	}

	var deduper services.Deduper = services.NopDeduper{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL:", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			utils.LogWarn("Redis not reachable, delivery dedupe degraded: %v", err)
		}
		deduper = services.NewRedisDeduper(rdb, cfg.DedupeTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		utils.LogInfo("Webhook delivery dedupe enabled (ttl %s)", cfg.DedupeTTL)
	}

	var notifier services.Notifier = services.NopNotifier{}
	if cfg.SMTPHost != "" && cfg.AlertEmail != "" {
		notifier = services.NewMailNotifier(services.MailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			To:       cfg.AlertEmail,
		})
		utils.LogInfo("Alert mail enabled for %s", cfg.AlertEmail)
	}

	gateways := gateway.NewRegistry(
		gateway.NewRazorpay(cfg.RazorpayKey, cfg.RazorpaySecret, cfg.RazorpayWebhookSecret),
		gateway.NewCashfree(cfg.CashfreeAppID, cfg.CashfreeSecret, cfg.CashfreeWebhookSecret, cfg.CashfreeEnv,
			gateway.WithCashfreeTolerance(cfg.WebhookTolerance)),
	)

	store := repository.NewPaymentRepository(db)
	reconciler := services.NewReconciler(store, notifier)
	payments := services.NewPaymentService(store, gateways)

	deps := routes.Dependencies{
		Env:             cfg.Env,
		JWTSecret:       cfg.SupabaseJWTSecret,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Webhooks:        controllers.NewWebhookController(gateways, reconciler, deduper, notifier, cfg.WebhookVerifyMode),
		Payments:        controllers.NewPaymentController(payments),
		Health:          controllers.NewHealthController(checks),
	}
	if !cfg.IsProduction() {
		deps.Dev = controllers.NewDevWebhookController(gateways)
	}

	// Set up router
	router := routes.SetupRouter(deps)

	utils.LogInfo("Server starting on port %s (providers: %v)", cfg.Port, gateways.Names())
	// Start server
	if err := router.Run(":" + cfg.Port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}
