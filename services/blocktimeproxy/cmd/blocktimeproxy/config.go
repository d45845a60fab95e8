package main

import (
	"fmt"
	"os"
	"time"

	"github.com/greymass/workutils/libraries/config"
)

type Config struct {
	Debug           bool     `name:"debug" help:"Enable debug logging (all categories)"`
	HTTPListen      string   `name:"http-listen" alias:"listen" default:"0.0.0.0:8080" help:"HTTP API TCP address ('none' to disable)"`
	HTTPSocket      string   `name:"http-socket" default:"none" help:"HTTP API Unix socket ('none' to disable)"`
	LogFile         string   `name:"log-file" help:"Log output file path (logs to both stdout and file when set)"`
	LogFilter       []string `name:"log-filter" default:"startup,http,proxy,circuit" help:"Log category filter (comma-separated)"`
	MetricsListen   string   `name:"metrics-listen" default:"localhost:9101" help:"Prometheus metrics address ('none' to disable)"`
	Profile         bool     `name:"profile" help:"Enable periodic CPU profiling"`
	ProfileInterval int      `name:"profile-interval" default:"60" help:"Profile logging interval in seconds"`
	PprofPort       string   `name:"pprof-port" help:"Port for pprof debugging endpoint"`
	QueryTrace      bool     `name:"query-trace" help:"Log per-request timing traces and allow ?trace=true"`

	RPCURL          string        `name:"rpc-url" default:"https://api.mainnet-beta.solana.com" help:"Solana JSON-RPC endpoint"`
	UpstreamTimeout time.Duration `name:"upstream-timeout" default:"10s" help:"Timeout for one getBlockTime call"`
	CacheSize       int           `name:"cache-size" default:"100000" help:"Block timestamps kept in memory"`

	RateLimit   int           `name:"rate-limit" default:"120" help:"Requests allowed per client per rate-window"`
	RateWindow  time.Duration `name:"rate-window" default:"1m" help:"Rate limit window"`
	CORSOrigins []string      `name:"cors-origins" default:"*" help:"Allowed CORS origins (comma-separated)"`

	UseCloudflareHeaders    bool `name:"use-cloudflare-headers" help:"Use Cloudflare headers for client IP"`
	RequireCloudflareSource bool `name:"require-cloudflare-source" help:"Require requests from Cloudflare IPs"`

	CircuitBreakerTimeout     int `name:"circuit-breaker-timeout" default:"60" help:"Circuit breaker timeout in seconds"`
	CircuitBreakerMaxRequests int `name:"circuit-breaker-max-requests" default:"10" help:"Circuit breaker max requests in half-open state"`
}

func loadConfig(configPath string) (*Config, error) {
	cfg := &Config{}
	args := os.Args[1:]
	if configPath != "" {
		args = []string{"-config", configPath}
	}
	if err := config.Load(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func enabled(addr string) bool {
	return addr != "" && addr != "none"
}

func (c *Config) Validate() error {
	if !enabled(c.HTTPListen) && !enabled(c.HTTPSocket) {
		return fmt.Errorf("at least one of http-listen or http-socket must be configured")
	}
	if c.RPCURL == "" {
		return fmt.Errorf("rpc-url cannot be empty")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream-timeout must be > 0")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache-size must be > 0")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate-limit must be > 0")
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("rate-window must be > 0")
	}
	if c.CircuitBreakerTimeout <= 0 {
		return fmt.Errorf("circuit-breaker-timeout must be > 0")
	}
	if c.CircuitBreakerMaxRequests <= 0 {
		return fmt.Errorf("circuit-breaker-max-requests must be > 0")
	}
	return nil
}
