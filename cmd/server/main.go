package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"projtrack/internal/app"
	"projtrack/internal/config"
	"projtrack/internal/httpserver"
	"projtrack/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger 还没初始化
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting projtrack server...",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("port", cfg.Server.Port),
		zap.Bool("auth", cfg.JWT.Secret != ""),
	)

	gin.SetMode(gin.ReleaseMode)

	a, err := app.New(context.Background(), cfg, app.Options{Bridge: true, Views: true}, log)
	if err != nil {
		log.Fatal("Failed to init application", zap.Error(err))
	}
	defer a.Close()

	// Status orchestrator
	orchestratorCtx, orchestratorCancel := context.WithCancel(context.Background())
	defer orchestratorCancel()
	orchestratorDone := make(chan struct{})
	if cfg.Orchestrator.Enabled {
		go func() {
			defer close(orchestratorDone)
			a.Orchestrator.Run(orchestratorCtx, cfg.Orchestrator.Interval)
		}()
	} else {
		close(orchestratorDone)
		log.Info("Status orchestrator disabled")
	}

	router := httpserver.NewRouter(a)
	addr := cfg.Server.Port
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("projtrack server is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down projtrack server gracefully...")

	orchestratorCancel()
	<-orchestratorDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("projtrack server shutdown complete")
}
