package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"media-gallery/internal/catalog"
	"media-gallery/internal/handlers"
	"media-gallery/internal/logging"
	"media-gallery/internal/memory"
	"media-gallery/internal/metrics"
	"media-gallery/internal/middleware"
	"media-gallery/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gallery web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	startTime := time.Now()
	loadDotEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		return err
	}
	memory.Configure(config.MemoryLimit, config.MemoryRatio)
	startup.LogFFmpegCheck(config.FFmpegPath)

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, runtime.Version())

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	app := newComponents(config, monitor)
	defer app.close()

	var watcher *catalog.Watcher
	if config.WatchUploads {
		watcher, err = catalog.NewWatcher(app.catalog, catalog.DefaultDebounce)
		if err != nil {
			logging.Warn("Upload directory watcher disabled: %v", err)
		}
	}

	var collector *metrics.Collector
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		collector = metrics.NewCollector(app.catalog, collectorInterval)
		collector.Start()
		metricsSrv = newMetricsServer(config.MetricsPort)
	}

	h := handlers.New(config, app.layout, app.pipeline, app.catalog, app.lifecycle)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           wrapHandler(router, config),
		ReadHeaderTimeout: 15 * time.Second,
		// Uploads of up to MAX_UPLOAD_BYTES must fit in ReadTimeout.
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	if metricsSrv != nil {
		go func() {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}
	startup.LogServerStarted(config, time.Since(startTime))

	var runErr error
	select {
	case <-ctx.Done():
		startup.LogShutdownInitiated("interrupt")
	case runErr = <-serverErr:
		logging.Error("Server error: %v", runErr)
		startup.LogShutdownInitiated("server error")
	}

	shutdown(srv, metricsSrv, watcher, collector, monitor)
	return runErr
}

// setupRouter registers the application routes and the per-route middleware.
func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	r.Use(middleware.Recover)
	h.Routes(r)
	return r
}

// wrapHandler applies access logging and compression around the router.
func wrapHandler(router http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(router)

	return middleware.Compression(middleware.DefaultCompressionConfig())(logged)
}

func newMetricsServer(port string) *http.Server {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              ":" + port,
		Handler:           m,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func shutdown(srv, metricsSrv *http.Server, watcher *catalog.Watcher, collector *metrics.Collector, monitor *memory.Monitor) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if watcher != nil {
		startup.LogShutdownStep("Stopping upload watcher")
		watcher.Stop()
		startup.LogShutdownStepComplete("Upload watcher stopped")
	}

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	// Releases derivations parked on memory pressure so in-flight uploads drain.
	startup.LogShutdownStep("Stopping memory monitor")
	monitor.Stop()
	startup.LogShutdownStepComplete("Memory monitor stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
