package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raspscan/raspscan/internal/cleanup"
	"github.com/raspscan/raspscan/internal/config"
	"github.com/raspscan/raspscan/internal/delivery"
	"github.com/raspscan/raspscan/internal/discovery"
	"github.com/raspscan/raspscan/internal/events"
	"github.com/raspscan/raspscan/internal/health"
	"github.com/raspscan/raspscan/internal/httpapi"
	"github.com/raspscan/raspscan/internal/httpapi/handlers"
	"github.com/raspscan/raspscan/internal/jobs"
	"github.com/raspscan/raspscan/internal/logging"
	"github.com/raspscan/raspscan/internal/model"
	"github.com/raspscan/raspscan/internal/probe"
	"github.com/raspscan/raspscan/internal/registry"
	"github.com/raspscan/raspscan/internal/secrets"
	"github.com/raspscan/raspscan/internal/storage"
	"github.com/raspscan/raspscan/internal/targets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DBDir(), 0o755); err != nil {
		logger.Error("failed to create db directory", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err != nil {
		logger.Error("failed to create artifact directory", "err", err)
		os.Exit(1)
	}

	repo, err := storage.New(ctx, cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	box, err := secrets.New(cfg.SecretKey, cfg.DBDir(), logger)
	if err != nil {
		logger.Error("failed to initialize secret box", "err", err)
		os.Exit(1)
	}

	deviceService := registry.New(repo, logger)
	targetService := targets.New(repo, box, cfg.ProbeTimeout, logger)

	probes := []probe.Prober{
		probe.NewESCLProber(cfg.DiscoveryTimeout),
		probe.NewSANEProber(cfg.DiscoveryTimeout),
	}
	merger := discovery.New(probes, deviceService, cfg.FamilyPreference, logger)

	hub := events.NewHub(logger)

	monitor := health.New(deviceService, probe.NewESCLPinger(cfg.ProbeTimeout), health.Options{
		WarmupWindow:   cfg.HealthWarmupWindow,
		WarmInterval:   cfg.HealthWarmInterval,
		SteadyInterval: cfg.HealthSteadyInterval,
	}, logger)
	monitor.OnTransition(hub.PublishHealth)
	if err := monitor.Start(ctx); err != nil {
		logger.Error("failed to start health monitor", "err", err)
		os.Exit(1)
	}
	defer func() { _ = monitor.Stop() }()

	dispatcher := delivery.New(cfg.DeliveryTimeout, logger)
	operator := probe.NewExecOperator(cfg.ArtifactDir)
	orchestrator := jobs.New(repo, deviceService, targetService, operator, dispatcher, cfg.WorkerPoolSize, logger)
	orchestrator.OnJobUpdate(hub.PublishJob)
	orchestrator.Start(ctx)
	defer orchestrator.Stop()

	reaper := cleanup.New(cfg.ArtifactDir, cfg.ArtifactRetention, logger)
	go reaper.Run(ctx)

	api := handlers.New(
		merger,
		deviceService,
		monitor,
		orchestrator,
		targetService,
		reaper,
		model.DefaultScanProfiles(),
		logger,
	)

	// No global read/write timeouts: websocket subscriptions stay open.
	// Request latency is bounded by the router's timeout middleware.
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(api, hub),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", httpServer.Addr)
	if err := httpapi.RunServer(ctx, httpServer); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
