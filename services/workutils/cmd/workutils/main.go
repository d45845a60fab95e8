package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"time"

	"github.com/greymass/workutils/libraries/blocktime"
	"github.com/greymass/workutils/libraries/config"
	"github.com/greymass/workutils/libraries/logger"
	"github.com/greymass/workutils/libraries/profiler"
	"github.com/greymass/workutils/libraries/server"
	"github.com/greymass/workutils/libraries/tzdb"
	"github.com/greymass/workutils/libraries/tzresolve"
	"github.com/greymass/workutils/services/workutils/internal/metrics"
	"github.com/greymass/workutils/services/workutils/internal/panel"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Version = "dev"

var (
	productionCategories = []string{"startup", "http", "session", "lookup"}
	debugCategories      = []string{"debug", "debug-session", "debug-cache", "debug-proxy"}
	allCategories        = append(append([]string{}, productionCategories...), debugCategories...)
)

func main() {
	config.CheckVersion(Version)

	cfg, err := loadConfig("")
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logger.RegisterCategories(allCategories...)
	if cfg.Debug {
		logger.SetMinLevel(logger.LevelDebug)
		logger.SetCategoryFilter(nil)
	} else {
		logger.SetCategoryFilter(cfg.LogFilter)
	}

	if cfg.LogFile != "" {
		if err := logger.SetLogFile(cfg.LogFile); err != nil {
			logger.Fatal("Failed to open log file %s: %v", cfg.LogFile, err)
		}
		defer logger.Close()
		logger.Printf("startup", "Logging to file: %s", cfg.LogFile)
	}

	if cfg.Profile {
		p := profiler.Start(profiler.Config{
			ServiceName: "workutils",
			Interval:    time.Duration(cfg.ProfileInterval) * time.Second,
		})
		defer p.Stop()
	}

	resolver := tzresolve.New()
	if cfg.Timezone != "" {
		local, err := tzdb.Load(cfg.Timezone)
		if err != nil {
			logger.Fatal("Invalid timezone %q: %v", cfg.Timezone, err)
		}
		resolver.Local = local
	}
	logger.Printf("startup", "Loaded %d time zones", len(resolver.Zones))

	cache := blocktime.NewCache(cfg.blockSource())
	metrics.WatchCache(cache)
	lookupTarget := cfg.ProxyURL
	if cfg.Lookup == "rpc" {
		lookupTarget = cfg.RPCURL
	}
	logger.Printf("startup", "Block time lookups via %s (%s, timeout %s)", cfg.Lookup, lookupTarget, cfg.LookupTimeout)

	panels := panel.NewServer(resolver, cache, panel.Config{
		MaxConnections: cfg.MaxConnections,
		LookupTimeout:  cfg.LookupTimeout,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", panels)
	mux.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK\n")
	}))

	httpServer := &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	if cfg.PprofPort != "" {
		go func() {
			pprofAddr := "localhost:" + cfg.PprofPort
			logger.Printf("startup", "Starting pprof server on %s", pprofAddr)
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				logger.Printf("startup", "pprof server failed: %v", err)
			}
		}()
	}

	if cfg.MetricsListen != "none" && cfg.MetricsListen != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsListener := server.SocketListen(cfg.MetricsListen)
		go func() {
			if err := http.Serve(metricsListener, metricsMux); err != nil {
				logger.Printf("startup", "metrics server failed: %v", err)
			}
		}()
		logger.Printf("startup", "Metrics server listening on %s", cfg.MetricsListen)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Printf("startup", "Starting workutils %s", Version)
	logger.Printf("startup", "  http-listen: %s", cfg.HTTPListen)

	listener := server.SocketListen(cfg.HTTPListen)
	go func() {
		<-ctx.Done()
		logger.Printf("startup", "Shutting down gracefully...")
		panels.Close()
	}()
	if err := server.Serve(ctx, httpServer, listener, 30*time.Second); err != nil {
		logger.Printf("startup", "Server shutdown error: %v", err)
	}

	hits, misses := cache.Stats()
	logger.Printf("startup", "Server stopped (cache: %d entries, %d hits, %d misses)", cache.Len(), hits, misses)
}
