package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/greymass/workutils/libraries/blocktime"
	"github.com/greymass/workutils/libraries/config"
	"github.com/greymass/workutils/libraries/logger"
	"github.com/greymass/workutils/libraries/profiler"
	"github.com/greymass/workutils/libraries/querytrace"
	"github.com/greymass/workutils/libraries/server"
	"github.com/greymass/workutils/services/blocktimeproxy/internal/api"
	"github.com/greymass/workutils/services/blocktimeproxy/internal/middleware"
	"github.com/greymass/workutils/services/blocktimeproxy/internal/proxy"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Version = "dev"

var (
	productionCategories = []string{"startup", "http", "proxy", "circuit"}
	debugCategories      = []string{"debug", "debug-proxy", "debug-cache", querytrace.Category}
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
		filter := cfg.LogFilter
		if cfg.QueryTrace {
			filter = append(filter, querytrace.Category)
		}
		logger.SetCategoryFilter(filter)
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
			ServiceName: "blocktimeproxy",
			Interval:    time.Duration(cfg.ProfileInterval) * time.Second,
		})
		defer p.Stop()
	}

	realIP, err := middleware.NewRealIP(cfg.UseCloudflareHeaders, cfg.RequireCloudflareSource)
	if err != nil {
		logger.Fatal("Failed to initialize Cloudflare middleware: %v", err)
	}
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer rateLimiter.Close()

	rpc := blocktime.NewRPCClient(blocktime.RPCConfig{URL: cfg.RPCURL, Timeout: cfg.UpstreamTimeout})
	blockTime, err := proxy.NewHandler(rpc, proxy.Config{
		CacheSize:          cfg.CacheSize,
		UpstreamTimeout:    cfg.UpstreamTimeout,
		BreakerMaxRequests: uint32(cfg.CircuitBreakerMaxRequests),
		BreakerInterval:    time.Duration(cfg.CircuitBreakerTimeout) * time.Second,
		BreakerTimeout:     time.Duration(cfg.CircuitBreakerTimeout) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create block time handler: %v", err)
	}
	logger.Printf("startup", "Upstream: %s (timeout %s, cache %d blocks)", cfg.RPCURL, cfg.UpstreamTimeout, cfg.CacheSize)
	logger.Printf("startup", "Rate limit: %d requests per %s per client", cfg.RateLimit, cfg.RateWindow)

	mux, err := api.NewMux(blockTime, Version)
	if err != nil {
		logger.Fatal("Failed to build routes: %v", err)
	}

	compress, err := middleware.Compress(1024)
	if err != nil {
		logger.Fatal("Failed to initialize compression: %v", err)
	}

	handler := middleware.Correlation(
		realIP.Middleware(
			middleware.Logging(
				middleware.CORS(cfg.CORSOrigins)(
					rateLimiter.Middleware(
						compress(mux),
					),
				),
			),
		),
	)

	if cfg.PprofPort != "" {
		go func() {
			pprofAddr := "localhost:" + cfg.PprofPort
			logger.Printf("startup", "Starting pprof server on %s", pprofAddr)
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				logger.Printf("startup", "pprof server failed: %v", err)
			}
		}()
	}

	if enabled(cfg.MetricsListen) {
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

	logger.Printf("startup", "Starting blocktimeproxy %s", Version)

	var wg sync.WaitGroup
	for _, addr := range []string{cfg.HTTPListen, cfg.HTTPSocket} {
		if !enabled(addr) {
			continue
		}
		srv := &http.Server{
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		ln := server.SocketListen(addr)
		logger.Printf("startup", "  listening: %s", addr)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Serve(ctx, srv, ln, 30*time.Second); err != nil {
				logger.Printf("startup", "Server shutdown error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Printf("startup", "Shutting down gracefully...")
	wg.Wait()
	logger.Printf("startup", "Server stopped (%d blocks cached)", blockTime.CacheLen())
}
