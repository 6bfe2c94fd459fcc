// Package main is the entry point for the agentmux-core orchestration server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentmux/agentmux-core/internal/activity"
	"github.com/agentmux/agentmux-core/internal/api"
	"github.com/agentmux/agentmux-core/internal/common/config"
	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/events/bus"
	"github.com/agentmux/agentmux-core/internal/orchestrator"
	"github.com/agentmux/agentmux-core/internal/scheduler"
	"github.com/agentmux/agentmux-core/internal/session"
	"github.com/agentmux/agentmux-core/internal/storage"
	"github.com/agentmux/agentmux-core/internal/supervisor"
	"github.com/agentmux/agentmux-core/internal/taskfolder"
	"github.com/agentmux/agentmux-core/internal/taskregistry"
	"github.com/agentmux/agentmux-core/internal/workflow"
	workflowconfig "github.com/agentmux/agentmux-core/internal/workflow/config"
)

func main() {
	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger.
	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPath: cfg.Logging.OutputPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("starting agentmux-core")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Open the snapshot-file store and ticket index.
	store, err := storage.New(cfg.Session.HomeDir, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}
	defer store.Close()
	log.Info("storage ready", zap.String("home_dir", cfg.Session.HomeDir))

	// 4. Build the Session Driver (C1).
	commandTimeout := time.Duration(cfg.Session.CommandTimeoutSeconds) * time.Second
	driver := session.New(cfg.Session.TmuxBinary, commandTimeout, log)

	// 5. Build the Task-Folder Store (C3) and Task Registry (C4).
	folder := taskfolder.New(log)
	registry := taskregistry.New(store, folder, log)

	// 6. Build the in-process Event Bus.
	eventBus := bus.NewMemoryEventBus(log)
	defer eventBus.Close()

	// 7. Build the Scheduler (C5) and re-arm any messages left active
	// from a prior run.
	sched := scheduler.New(store, driver, log)
	if err := sched.RearmAll(); err != nil {
		log.Error("failed to rearm scheduled messages", zap.Error(err))
	}

	// 8. Build the Agent Supervisor (C6).
	supCfg := supervisor.Config{
		EscalationTimeout:     time.Duration(cfg.Agent.EscalationTimeoutSeconds) * time.Second,
		RegistrationFreshness: time.Duration(cfg.Agent.RegistrationFreshnessSeconds) * time.Second,
		MaxConcurrentCreates:  cfg.Session.MaxConcurrentCreates,
		BatchGap:              time.Duration(cfg.Session.CreateBatchGapMillis) * time.Millisecond,
	}
	sup := supervisor.New(driver, store, supCfg, log)

	// 9. Build the Activity Monitor (C7) and run it in the background.
	monitor := activity.New(store, driver, time.Duration(cfg.Agent.ActivityPollSeconds)*time.Second, cfg.Agent.ActivityCaptureLines, log)
	go monitor.Run(ctx)

	// 10. Build the Workflow Config Loader (C12) and Workflow Engine (C8).
	loader, err := workflowconfig.New(cfg.Workflow.ConfigDir, log)
	if err != nil {
		log.Fatal("failed to load workflow configs", zap.Error(err))
	}
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	if err := loader.Watch(stopWatch); err != nil {
		log.Error("failed to watch workflow config directory", zap.Error(err))
	}

	assignmentQueue := workflow.NewAssignmentQueue()
	engine := workflow.New(loader, driver, folder, assignmentQueue, cfg.Workflow.TPMFileGatingEnabled, nil, log)

	// 11. Build the Orchestrator (C9).
	orc := orchestrator.New(store, store, sup, sched, registry, store, folder, driver, eventBus, log)

	// 12. Build the HTTP/WS facade.
	handler := api.NewHandler(orc, store, store, sched, store, engine, log)
	hub := api.NewHub(eventBus, log)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(api.RequestLogger(log))
	router.Use(api.Recovery(log))
	router.Use(api.ErrorHandler(log))
	router.Use(api.CORS())
	if cfg.Server.RateLimitPerSecond > 0 {
		router.Use(api.RateLimit(cfg.Server.RateLimitPerSecond))
	}

	v1 := router.Group("/api/v1")
	api.SetupRoutes(v1, handler, hub, log)

	port := cfg.Server.WebPort
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	// 13. Wait for a shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down agentmux-core")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("agentmux-core stopped")
}
