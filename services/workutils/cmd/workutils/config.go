package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/greymass/workutils/libraries/blocktime"
	"github.com/greymass/workutils/libraries/config"
)

type Config struct {
	Debug           bool     `name:"debug" help:"Enable debug logging (all categories)"`
	HTTPListen      string   `name:"http-listen" alias:"listen" default:":8090" help:"Panel websocket address (TCP or .sock path)"`
	LogFile         string   `name:"log-file" help:"Log output file path (logs to both stdout and file when set)"`
	LogFilter       []string `name:"log-filter" default:"startup,http,session,lookup" help:"Log category filter (comma-separated)"`
	MetricsListen   string   `name:"metrics-listen" default:"localhost:9102" help:"Prometheus metrics address ('none' to disable)"`
	Profile         bool     `name:"profile" help:"Enable periodic CPU profiling"`
	ProfileInterval int      `name:"profile-interval" default:"60" help:"Profile logging interval in seconds"`
	PprofPort       string   `name:"pprof-port" help:"Port for pprof debugging endpoint"`

	Lookup         string        `name:"lookup" default:"proxy" help:"Block time source: proxy or rpc"`
	ProxyURL       string        `name:"proxy-url" default:"http://localhost:8080" help:"blocktimeproxy base URL (http:// or unix://)"`
	RPCURL         string        `name:"rpc-url" default:"https://api.mainnet-beta.solana.com" help:"Solana JSON-RPC endpoint"`
	LookupTimeout  time.Duration `name:"lookup-timeout" default:"30s" help:"Give up on a block time lookup after this long"`
	MaxConnections int           `name:"max-connections" default:"1000" help:"Max concurrent panel sessions"`
	Timezone       string        `name:"timezone" help:"Zone name treated as the host zone by guess_zone (default: system zone)"`
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
	cfg.Lookup = strings.ToLower(cfg.Lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPListen == "" || c.HTTPListen == "none" {
		return fmt.Errorf("http-listen must be configured")
	}
	switch c.Lookup {
	case "proxy":
		if c.ProxyURL == "" {
			return fmt.Errorf("proxy-url cannot be empty when lookup=proxy")
		}
	case "rpc":
		if c.RPCURL == "" {
			return fmt.Errorf("rpc-url cannot be empty when lookup=rpc")
		}
	default:
		return fmt.Errorf("lookup must be proxy or rpc, got %q", c.Lookup)
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("lookup-timeout must be > 0")
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max-connections must be > 0")
	}
	if c.ProfileInterval <= 0 {
		return fmt.Errorf("profile-interval must be > 0")
	}
	return nil
}

// blockSource builds the configured lookup binding.
func (c *Config) blockSource() blocktime.Source {
	if c.Lookup == "rpc" {
		return blocktime.NewRPCClient(blocktime.RPCConfig{URL: c.RPCURL, Timeout: c.LookupTimeout})
	}
	return blocktime.NewProxyClient(blocktime.ProxyConfig{URL: c.ProxyURL, Timeout: c.LookupTimeout})
}
