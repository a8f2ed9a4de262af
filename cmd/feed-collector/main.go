package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pribylovaa/go-feed-collector/internal/collector"
	"github.com/pribylovaa/go-feed-collector/internal/config"
	"github.com/pribylovaa/go-feed-collector/internal/extract"
	opshttp "github.com/pribylovaa/go-feed-collector/internal/http"
	"github.com/pribylovaa/go-feed-collector/internal/interceptors"
	"github.com/pribylovaa/go-feed-collector/internal/metrics"
	"github.com/pribylovaa/go-feed-collector/internal/proxies"
	"github.com/pribylovaa/go-feed-collector/internal/service"
	"github.com/pribylovaa/go-feed-collector/internal/storage"
	"github.com/pribylovaa/go-feed-collector/internal/storage/files"
	"github.com/pribylovaa/go-feed-collector/internal/storage/postgres"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var (
		configPath string
		once       bool
	)
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.BoolVar(&once, "once", false, "run a single collection pass and exit")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	if once {
		cfg.Interval = 0
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting feed-collector",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Driver),
		slog.Duration("interval", cfg.Interval),
	)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	store, err := openStorage(rootCtx, cfg.Storage)
	if err != nil {
		log.Error("storage_open_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info("storage_opened", slog.String("driver", cfg.Storage.Driver))

	specs := make([]proxies.Spec, 0, len(cfg.Proxy.Sources))
	for _, s := range cfg.Proxy.Sources {
		specs = append(specs, proxies.Spec{Name: s.Name, URL: s.URL, Kind: s.Kind, HTTPSOnly: s.HTTPSOnly})
	}
	sources, err := proxies.FromSpecs(specs, nil)
	if err != nil {
		log.Error("proxy_sources_invalid", slog.String("err", err.Error()))
		rootCancel()
		store.Close()
		os.Exit(1)
	}

	hs := health.NewServer()
	hs.SetServingStatus(service.HealthName, healthpb.HealthCheckResponse_NOT_SERVING)

	svc := service.New(store, *cfg, collector.New(extract.Default()), sources).
		WithHealth(hs).
		WithObserver(metrics.New(nil))
	log.Info("service_initialized", slog.Int("sources", len(cfg.Sources)), slog.Int("proxy_sources", len(sources)))

	var (
		grpcServer *grpc.Server
		serveErrCh chan error
	)
	if cfg.GRPC.Enabled {
		grpcServer = grpc.NewServer(interceptors.ServerOptions(log, cfg.Timeouts.Service)...)
		healthpb.RegisterHealthServer(grpcServer, hs)
		interceptors.RegisterMetrics(grpcServer)

		if cfg.Env == envLocal || cfg.Env == envDev {
			reflection.Register(grpcServer)
		}

		addr := cfg.GRPC.Addr()
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Error("grpc_listen_failed",
				slog.String("addr", addr),
				slog.String("err", err.Error()),
			)
			rootCancel()
			store.Close()
			os.Exit(1)
		}
		log.Info("grpc_listen_start", slog.String("addr", addr))

		serveErrCh = make(chan error, 1)
		go func() {
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				serveErrCh <- err
			}
			close(serveErrCh)
		}()
	}

	var (
		httpSrv        *http.Server
		httpServeErrCh chan error
	)
	if cfg.HTTP.Enabled {
		httpSrv = &http.Server{
			Addr:              cfg.HTTP.Addr(),
			Handler:           opshttp.NewRouter(opshttp.Options{Logger: log, Ready: svc.Healthy}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		httpServeErrCh = make(chan error, 1)
		go func() {
			log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpServeErrCh <- err
			}
			close(httpServeErrCh)
		}()
	}

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- svc.StartSchedule(rootCtx)
	}()

	exitCode := 0
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
		<-schedDone
	case err := <-schedDone:
		if err != nil {
			log.Error("collect_failed", slog.String("err", err.Error()))
			exitCode = 1
		}
	case err := <-serveErrCh:
		if err != nil {
			log.Error("grpc_serve_failed", slog.String("err", err.Error()))
			exitCode = 1
		}
		rootCancel()
		<-schedDone
	case err := <-httpServeErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
			exitCode = 1
		}
		rootCancel()
		<-schedDone
	}

	if httpSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http_shutdown_failed", slog.String("err", err.Error()))
		}
		shutdownCancel()
		log.Info("http_stopped")
	}

	if grpcServer != nil {
		hs.Shutdown()
		stopGRPC(log, grpcServer, 10*time.Second)
	}

	rootCancel()
	store.Close()

	log.Info("service_stopped")
	os.Exit(exitCode)
}

// openStorage открывает хранилище выбранного драйвера.
func openStorage(ctx context.Context, sc config.StorageConfig) (storage.Storage, error) {
	switch sc.Driver {
	case config.DriverPostgres:
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return postgres.New(dbCtx, sc.DBURL)
	default:
		return files.New(sc.DataDir, sc.LogDir, sc.ProxiesFile)
	}
}

// stopGRPC — GracefulStop с принудительной остановкой по таймауту.
func stopGRPC(log *slog.Logger, srv *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc_stopped")
	case <-time.After(timeout):
		log.Warn("grpc_force_stop")
		srv.Stop()
	}
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
