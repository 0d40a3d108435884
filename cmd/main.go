package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/adapters/http/api"
	"github.com/okian/aol-b30/internal/adapters/http/swagger"
	app "github.com/okian/aol-b30/internal/app"
	"github.com/okian/aol-b30/internal/config"
	"github.com/okian/aol-b30/pkg/logger"
	"github.com/okian/aol-b30/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	configureMetrics(cfg)

	hostAPI, client, err := newHost(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to connect to host", logger.Error(err))
		return
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	svc := newService(cfg, hostAPI, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	if client != nil {
		// Host pushes go through the service queue.
		client.OnScoreboard(svc.Enqueue)
		go func() {
			<-client.Done()
			loggerInstance.Warn(ctx, "host connection closed", logger.Error(client.Err()))
			stop()
		}()
	} else {
		loadScoreboard(ctx, cfg, svc, loggerInstance)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// configureMetrics rebuilds the global metrics manager with the configured
// namespace and instance label.
func configureMetrics(cfg *config.Config) *prometheus.Registry {
	return metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithConstLabels(map[string]string{"instance": cfg.MetricsInstance}),
	)
}

// newHost dials the configured host, or opens the asset directory when no
// host URL is set. The client is nil for a local host.
func newHost(ctx context.Context, cfg *config.Config, l logger.Logger) (host.API, *host.Client, error) {
	if cfg.HostURL != "" {
		client, err := host.Dial(ctx, cfg.HostURL,
			host.WithCallTimeout(time.Duration(cfg.HostCallTimeoutMS)*time.Millisecond),
			host.WithVersionConstraint(cfg.HostAPIVersion),
			host.WithClientLogger(l.Named("host")),
		)
		if err != nil {
			return nil, nil, err
		}
		l.Info(ctx, "connected to host",
			logger.String("url", cfg.HostURL),
			logger.String("version", client.Version().String()))
		return client, client, nil
	}
	local, err := host.NewLocal(cfg.AssetDir, cfg.AssetBaseURL,
		host.WithPreferenceFile(cfg.PreferenceFile),
		host.WithExportDir(cfg.ExportDir),
		host.WithLocalLogger(l.Named("local_host")),
	)
	if err != nil {
		return nil, nil, err
	}
	l.Info(ctx, "serving local assets", logger.String("dir", local.Root()))
	return local, nil, nil
}

func newService(cfg *config.Config, api host.API, l logger.Logger) *app.Service {
	return app.New(api,
		app.WithLogger(l),
		app.WithBlobPrefix(cfg.BlobPrefix),
		app.WithDecodeConcurrency(cfg.DecodeConcurrency),
		app.WithBrandAsset(cfg.BrandAsset),
		app.WithFontAsset(cfg.FontAsset),
		app.WithDefaultScale(cfg.DefaultScale),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeWindow(cfg.DedupeWindow),
	)
}

// loadScoreboard queues the scoreboard file of a local host. A missing file
// leaves the service waiting for POST /scoreboard.
func loadScoreboard(ctx context.Context, cfg *config.Config, svc *app.Service, l logger.Logger) {
	resp, err := host.LoadScoreboard(cfg.ScoreboardFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.Info(ctx, "no scoreboard file; waiting for a push", logger.String("file", cfg.ScoreboardFile))
		return
	case err != nil:
		l.Warn(ctx, "failed to read scoreboard file", logger.String("file", cfg.ScoreboardFile), logger.Error(err))
		return
	}
	if err := svc.Enqueue(ctx, resp); err != nil {
		l.Warn(ctx, "failed to queue scoreboard file", logger.Error(err))
	}
}

func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux, cfg.BlobPrefix)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if handles, ok := stats["liveHandles"].(int); ok {
		metrics.UpdateLiveHandles(handles)
	}
}
