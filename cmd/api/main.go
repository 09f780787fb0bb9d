package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/payperplay/hosting/internal/api"
	"github.com/payperplay/hosting/internal/audit"
	"github.com/payperplay/hosting/internal/auth"
	"github.com/payperplay/hosting/internal/costhistory"
	"github.com/payperplay/hosting/internal/fsresolver"
	"github.com/payperplay/hosting/internal/middleware"
	"github.com/payperplay/hosting/internal/monitoring"
	"github.com/payperplay/hosting/internal/provider"
	"github.com/payperplay/hosting/internal/reconciler"
	"github.com/payperplay/hosting/internal/scheduler"
	"github.com/payperplay/hosting/internal/store"
	"github.com/payperplay/hosting/pkg/config"
	"github.com/payperplay/hosting/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()

	logLevel := parseLogLevel(cfg.LogLevel)
	appLogger := logger.NewLogger(logLevel, os.Stdout, cfg.LogJSON)
	logger.SetDefault(appLogger)

	logger.Info("starting application", map[string]interface{}{
		"app":   cfg.AppName,
		"debug": cfg.Debug,
		"port":  cfg.Port,
	})

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required", nil, nil)
	}
	gormConfig := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if cfg.Debug {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), gormConfig)
	if err != nil {
		logger.Fatal("failed to connect to database", err, nil)
	}
	logger.Info("database connection established", nil)

	kvStore := store.NewGormStore(db)
	if err := kvStore.Migrate(); err != nil {
		logger.Fatal("failed to migrate kv_records table", err, nil)
	}

	candidates := store.NewCandidateRepo(kvStore)
	vms := store.NewVMRepo(kvStore)
	sshKeys := store.NewSSHKeyRepo(kvStore)
	launchRequests := store.NewLaunchRequestRepo(kvStore)
	seedStatuses := store.NewSeedStatusRepo(kvStore)
	settings := store.NewSettingsRepo(kvStore)

	providerClient := provider.NewLambdaClient(
		settingsBackedKeyFunc(settings, cfg.ProviderAPIKey),
		cfg.ProviderBaseURL,
		cfg.ProviderDataTimeout,
	)

	resolver := fsresolver.NewResolver(seedStatuses, providerClient)
	sched := scheduler.New(candidates, vms, launchRequests, sshKeys, settings, providerClient, resolver, cfg.BaseURL)
	auditLogger := audit.NewLogger(1000)

	costRecorder, err := costhistory.New(context.Background(), costhistory.Config{
		URL:    cfg.InfluxDBURL,
		Token:  cfg.InfluxDBToken,
		Org:    cfg.InfluxDBOrg,
		Bucket: cfg.InfluxDBBucket,
	})
	if err != nil {
		logger.Warn("influxdb cost-history mirror unavailable, continuing with database-only history", map[string]interface{}{"error": err.Error()})
	}

	recon := reconciler.New(candidates, vms, sshKeys, seedStatuses, settings, providerClient, sched, auditLogger, costRecorder, cfg.ReconcileInterval)
	recon.Start()
	defer recon.Stop()
	logger.Info("reconciler started", map[string]interface{}{"interval": cfg.ReconcileInterval.String()})

	metricsExporter := monitoring.NewMetricsExporter(candidates, vms, launchRequests, seedStatuses)
	metricsCtx, cancelMetrics := context.WithCancel(context.Background())
	defer cancelMetrics()
	metricsExporter.StartMetricsCollector(metricsCtx, cfg.ReconcileInterval)

	authenticator, err := auth.NewAuthenticator(context.Background(), cfg.JWKSIssuerURL, cfg.JWKSClientID)
	if err != nil {
		logger.Fatal("failed to initialize JWKS authenticator", err, nil)
	}
	authMiddleware := middleware.AuthMiddleware(authenticator, candidates, cfg.AdminEmails)

	handler := &api.Handler{
		Candidates:   candidates,
		VMs:          vms,
		SSHKeys:      sshKeys,
		SeedStatuses: seedStatuses,
		Settings:     settings,
		Provider:     providerClient,
		Scheduler:    sched,
		Audit:        auditLogger,
		AppBaseURL:   cfg.BaseURL,
	}

	router := api.SetupRouter(handler, authMiddleware, cfg)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down gracefully...", nil)
		recon.Stop()
		cancelMetrics()
		logger.Info("shutdown complete", nil)
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("server starting", map[string]interface{}{
		"address":      addr,
		"api_endpoint": fmt.Sprintf("http://localhost%s/api", addr),
		"health_check": fmt.Sprintf("http://localhost%s/health", addr),
	})

	if err := router.Run(addr); err != nil {
		logger.Fatal("failed to start server", err, nil)
	}
}

// settingsBackedKeyFunc resolves the Lambda API key from Settings on every call, falling
// back to the environment-configured key when no admin has saved one yet.
func settingsBackedKeyFunc(settings *store.SettingsRepo, fallback string) provider.KeyFunc {
	return func(ctx context.Context) (string, error) {
		s, err := settings.Get(ctx)
		if err != nil {
			return "", err
		}
		if s.LambdaAPIKey != "" {
			return s.LambdaAPIKey, nil
		}
		if fallback != "" {
			return fallback, nil
		}
		return "", fmt.Errorf("no provider API key configured")
	}
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logger.DEBUG
	case "INFO":
		return logger.INFO
	case "WARN":
		return logger.WARN
	case "ERROR":
		return logger.ERROR
	case "FATAL":
		return logger.FATAL
	default:
		return logger.INFO
	}
}
