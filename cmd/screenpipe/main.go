package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"screenpipe/internal/core/domain"
	"screenpipe/internal/core/ports"
	"screenpipe/internal/core/services"
	httphandlers "screenpipe/internal/handlers/http"
	"screenpipe/internal/infrastructure/capture"
	"screenpipe/internal/infrastructure/encoding"
	"screenpipe/internal/infrastructure/middleware"
	"screenpipe/internal/infrastructure/monitoring"
	"screenpipe/internal/infrastructure/status"
	"screenpipe/pkg/config"
	"screenpipe/pkg/logger"
	"screenpipe/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	// Tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "screenpipe",
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Platform adapters
	grabber := capture.NewScreenGrabber(log)
	permissions := capture.NewDisplayPermissionChecker()
	scopeBuilder := capture.NewFullScreenScopeBuilder()
	writerFactory := encoding.NewWriterFactory(cfg.Capture.FFmpegPath, log)
	optimizer := encoding.NewFaststartOptimizer(cfg.Capture.FFmpegPath, log)

	// Monitoring
	var forward ports.SessionObserver
	if cfg.Monitoring.PrometheusEnabled {
		forward = monitoring.NewPrometheusCollector()
	}
	monitor := services.NewPerformanceMonitor(cfg.Monitoring.HistoryCapacity, forward)

	// Status fan-out
	broadcaster := status.NewBroadcaster(log)

	// Core services
	controller := services.NewSessionController(
		grabber,
		permissions,
		writerFactory,
		services.NewContentFilterCache(scopeBuilder),
		services.NewQualityResolver(),
		monitor,
		broadcaster,
		optimizer,
		log,
	)

	captureHandler := httphandlers.NewCaptureHandler(controller, monitor, cfg, log)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	captureHandler.SetupRoutes(router)

	router.GET("/ws/status", func(c *gin.Context) {
		broadcaster.HandleConnection(c.Writer, c.Request)
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting screenpipe control API on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down screenpipe...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Finalize an in-flight recording before the server goes away, so the
	// container index is written and the file stays playable.
	if state := controller.Status().State; state == domain.StatusRecording || state == domain.StatusPaused {
		if _, err := controller.StopRecording(shutdownCtx, false); err != nil {
			log.Warnw("failed to finalize recording on shutdown", "error", err)
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	log.Info("screenpipe stopped")
}
