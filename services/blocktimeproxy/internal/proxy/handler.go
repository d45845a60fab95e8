package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/greymass/workutils/libraries/blocktime"
	"github.com/greymass/workutils/libraries/logger"
	"github.com/greymass/workutils/libraries/querytrace"
	"github.com/greymass/workutils/libraries/server"
	"github.com/greymass/workutils/services/blocktimeproxy/internal/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

type BlockTimeResponse struct {
	Block     uint64             `json:"block"`
	Timestamp int64              `json:"timestamp"`
	Trace     *querytrace.Output `json:"trace,omitempty"`
}

type Config struct {
	CacheSize       int
	UpstreamTimeout time.Duration

	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	BreakerMinRequests uint32
	BreakerFailRatio   float64
}

// Handler serves GET /solana_blocktime/{height}. Answers are cached in a
// bounded LRU; misses for the same height share one upstream call, and all
// upstream calls go through a circuit breaker.
type Handler struct {
	source  blocktime.Source
	cache   *lru.Cache[uint64, int64]
	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewHandler(source blocktime.Source, cfg Config) (*Handler, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100000
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 10 * time.Second
	}
	if cfg.BreakerMinRequests == 0 {
		cfg.BreakerMinRequests = 3
	}
	if cfg.BreakerFailRatio == 0 {
		cfg.BreakerFailRatio = 0.6
	}

	cache, err := lru.New[uint64, int64](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	settings := gobreaker.Settings{
		Name:        "rpc",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.BreakerMinRequests && failureRatio >= cfg.BreakerFailRatio
		},
		// A node that answers "no such block" is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || blocktime.IsNotAvailable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("circuit", "Circuit %s: %s -> %s", name, from, to)
			open := 0.0
			if to == gobreaker.StateOpen {
				open = 1
			}
			metrics.CircuitBreakerOpen.Set(open)
		},
	}

	return &Handler{
		source:  source,
		cache:   cache,
		breaker: gobreaker.NewCircuitBreaker(settings),
		timeout: cfg.UpstreamTimeout,
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	text := r.PathValue("height")
	height, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid block height %q", text))
		return
	}

	tracer := querytrace.New("blocktime", text)
	defer tracer.Log()
	wantTrace := tracer.Enabled() && r.URL.Query().Get("trace") == "true"

	step := tracer.Step("cache", "get")
	ts, ok := h.cache.Get(height)
	step.Details("hit=%v size=%d", ok, h.cache.Len()).End()
	if ok {
		metrics.CacheHits.Inc()
		logger.Printf("debug-cache", "CACHE HIT: block %d", height)
		tracer.SetOutcome("hit")
		resp := BlockTimeResponse{Block: height, Timestamp: ts}
		if wantTrace {
			resp.Trace = tracer.Output()
		}
		w.Header().Set("X-Cache", "HIT")
		server.WriteJSON(w, http.StatusOK, resp)
		return
	}
	metrics.CacheMisses.Inc()

	step = tracer.Step("upstream", "getBlockTime")
	ts, shared, err := h.lookup(r.Context(), height)
	step.Details("shared=%v breaker=%s", shared, h.breaker.State()).End()
	if err != nil {
		tracer.SetOutcome("error")
		status := http.StatusInternalServerError
		reason := "upstream"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			status = http.StatusServiceUnavailable
			reason = "circuit_open"
		case blocktime.IsNotAvailable(err):
			reason = "not_available"
		case errors.Is(err, context.Canceled):
			return
		}
		metrics.UpstreamErrors.WithLabelValues(reason).Inc()
		logger.Printf("proxy", "block %d: %v", height, err)
		server.WriteError(w, status, err.Error())
		return
	}

	tracer.SetOutcome("fetched")
	resp := BlockTimeResponse{Block: height, Timestamp: ts}
	if wantTrace {
		resp.Trace = tracer.Output()
	}
	w.Header().Set("X-Cache", "MISS")
	server.WriteJSON(w, http.StatusOK, resp)
}

// lookup fetches height once no matter how many requests are waiting on it;
// shared reports that other requests got the same answer. The upstream call
// is detached from any single request so that one client going away does
// not fail the others.
func (h *Handler) lookup(ctx context.Context, height uint64) (int64, bool, error) {
	ch := h.group.DoChan(strconv.FormatUint(height, 10), func() (interface{}, error) {
		if ts, ok := h.cache.Get(height); ok {
			return ts, nil
		}
		v, err := h.breaker.Execute(func() (interface{}, error) {
			uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
			defer cancel()
			start := time.Now()
			ts, err := h.source.BlockTime(uctx, height)
			metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
			return ts, err
		})
		if err != nil {
			return nil, err
		}
		ts := v.(int64)
		h.cache.Add(height, ts)
		logger.Printf("debug-proxy", "fetched block %d timestamp %d", height, ts)
		return ts, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Shared, res.Err
		}
		return res.Val.(int64), res.Shared, nil
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

func (h *Handler) CacheLen() int {
	return h.cache.Len()
}
