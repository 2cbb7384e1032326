package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"backoffice/internal/backend"
	"backoffice/internal/cache"
	"backoffice/internal/cli"
	"backoffice/internal/erp"
	apphttp "backoffice/internal/http"
	applog "backoffice/internal/log"
	"backoffice/internal/services"
	"backoffice/internal/tenant"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	// Browser requests carry their own ERP session; no API key here.
	client := erp.New(cfg.ERPBaseURL,
		erp.WithTimeout(cfg.ERPTimeout),
		erp.WithLogger(logger))

	cacheManager := cache.NewManager(logger)
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()
	catalog := erp.NewCatalog(client, cfg.CacheSize, cfg.CacheTTL, cacheManager)

	costs, income := cli.NewDashboards(client, catalog, logger)

	be, err := backend.NewFactory(logger).Create(context.Background(), cfg, backend.Sources{Costs: costs, Income: income})
	if err != nil {
		logger.Error("Failed to initialize export backend", applog.FieldError, err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.Warn("Export backend close failed", applog.FieldError, err)
		}
	}()

	tenants := tenant.NewHolder(nil, be.State, logger)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		SessionCookieName:  cfg.SessionCookieName,
		RecentPageSize:     cfg.RecentPageSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}, apphttp.Deps{
		Costs:          costs,
		Income:         income,
		Catalog:        catalog,
		Employees:      services.NewEmployeeService(client.Employees, logger),
		Remuneraciones: services.NewRemuneracionService(client.Remuneraciones, logger),
		Previsionales:  services.NewPrevisionalService(client.Previsionales, logger),
		IncomeRecords:  services.NewIncomeService(client.Income, logger),
		Projects:       services.NewProjectService(client.Projects, client.Milestones, logger),
		Exports:        be.Export,
		Tenants:        tenants,
		Ready:          be.Ping,
	}, logger)

	// Configure server timeouts and limits
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting backoffice server",
		"port", cfg.Port,
		"erp", cfg.ERPBaseURL,
		"backend", cfg.ExportBackend,
		"default_tenant", tenants.Default().ID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
