package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"corpus-manager/internal/config"
	"corpus-manager/internal/consolidate"
	"corpus-manager/internal/database"
	"corpus-manager/internal/filesystem"
	"corpus-manager/internal/handlers"
	"corpus-manager/internal/indexer"
	"corpus-manager/internal/logging"
	"corpus-manager/internal/memory"
	"corpus-manager/internal/metrics"
	"corpus-manager/internal/middleware"
	"corpus-manager/internal/search"
	"corpus-manager/internal/startup"

	"github.com/spf13/cobra"
)

const (
	metricsInterval = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background indexing",
		Long: `Serve the JSON API over HTTP.

An initial full index starts in the background; /readyz answers 200 once it
has completed. With server.index_interval set, full runs repeat on that
schedule. Prometheus metrics are served on a separate port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			startTime := time.Now()
			memory.ConfigureFromEnv()

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return serve(cmd.Context(), cfg, startTime)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen address (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides server.port)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, startTime time.Time) error {
	if err := startup.Prepare(cfg); err != nil {
		return err
	}

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	dbStart := time.Now()
	db, err := database.New(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	indexerConfig := cfg.IndexerConfig(true)
	startup.LogIndexerInit(indexerConfig.Interval, indexerConfig.HashWorkers)
	idx, err := indexer.New(db, indexerConfig)
	if err != nil {
		return fmt.Errorf("initialize indexer: %w", err)
	}

	collector := metrics.NewCollector(db, db, metricsInterval)
	collector.Start()
	idx.SetOnIndexComplete(func(indexer.RunStats) { collector.Refresh() })

	idx.Start()
	startup.LogIndexerStarted()

	searchEngine := search.NewEngine(db)
	consolidator := consolidate.NewEngine(db, searchEngine, cfg.Consolidation.OutputDir)
	if f, err := consolidate.ParseFormat(cfg.Consolidation.DefaultFormat); err == nil {
		consolidator.SetDefaultFormat(f)
	}

	h := handlers.New(db, idx, searchEngine, consolidator)
	router := handlers.NewRouter(h)
	startup.LogHTTPRoutes(router, cfg.Server.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = cfg.Server.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Server.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.MetricsPort)),
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	serveErr := make(chan error, 2)
	listen := func(s *http.Server, name string) {
		logging.Debug("%s server listening on %s", name, s.Addr)
		if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go listen(srv, "HTTP")
	if metricsSrv != nil {
		go listen(metricsSrv, "Metrics")
	}

	startup.LogServerStarted(startup.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		MetricsPort:     cfg.Server.MetricsPort,
		MetricsEnabled:  cfg.Server.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
	case <-ctx.Done():
		startup.LogShutdownInitiated("context canceled")
	case runErr = <-serveErr:
		logging.Error("Server error: %v", runErr)
		startup.LogShutdownInitiated("server error")
	}

	shutdown(srv, metricsSrv, idx, collector)
	return runErr
}

func shutdown(srv, metricsSrv *http.Server, idx *indexer.Indexer, collector *metrics.Collector) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	startup.LogShutdownStep("Stopping metrics")
	collector.Stop()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}
	startup.LogShutdownStepComplete("Metrics stopped")

	startup.LogShutdownComplete()
}
