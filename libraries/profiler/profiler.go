// Package profiler logs a top-N CPU summary at a fixed interval, in the
// spirit of `go tool pprof -top`, so long running services can be profiled
// from their logs alone.
package profiler

import (
	"bytes"
	"fmt"
	"runtime"
	"runtime/pprof"
	"sort"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/greymass/workutils/libraries/logger"
)

type Config struct {
	ServiceName string
	Interval    time.Duration // also the length of each capture, default 60s
	TopN        int           // default 20
}

// Profiler captures back to back CPU profiles until stopped.
type Profiler struct {
	cfg  Config
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Start begins profiling. Only one CPU profile can run per process; a
// second Profiler logs the pprof error on every capture.
func Start(cfg Config) *Profiler {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 20
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "unknown"
	}

	p := &Profiler{
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	logger.Printf("profiler", "Starting periodic CPU profiling every %v", cfg.Interval)
	go p.run()
	return p
}

// Stop ends the current capture early and waits for its report.
func (p *Profiler) Stop() {
	p.once.Do(func() { close(p.stop) })
	<-p.done
}

func (p *Profiler) run() {
	defer close(p.done)
	for {
		if !p.capture() {
			logger.Printf("profiler", "Stopped periodic CPU profiling")
			return
		}
	}
}

// capture records one interval and logs it. It returns false once stopped.
func (p *Profiler) capture() bool {
	start := time.Now()
	var buf bytes.Buffer
	if err := pprof.StartCPUProfile(&buf); err != nil {
		logger.Printf("profiler", "PROFILE ERROR: could not start CPU profile: %v", err)
		select {
		case <-p.stop:
			return false
		case <-time.After(p.cfg.Interval):
			return true
		}
	}

	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()

	running := true
	select {
	case <-timer.C:
	case <-p.stop:
		running = false
	}
	pprof.StopCPUProfile()

	elapsed := time.Since(start)
	if buf.Len() == 0 {
		logger.Printf("profiler", "PROFILE: no CPU samples captured")
		return running
	}
	prof, err := profile.Parse(&buf)
	if err != nil {
		logger.Printf("profiler", "PROFILE ERROR: could not parse profile: %v", err)
		return running
	}
	p.report(start, elapsed, summarize(prof))
	return running
}

func (p *Profiler) report(start time.Time, elapsed time.Duration, s *summary) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	total := s.seconds(s.totalSamples)
	logger.Printf("profiler", "%s cpu profile at %s: %.1fs captured, %.2fs sampled (%.1f%%)",
		p.cfg.ServiceName, start.Format("2006-01-02 15:04:05"),
		elapsed.Seconds(), total, 100*total/elapsed.Seconds())
	logger.Printf("profiler", "goroutines=%d heap=%dMB sys=%dMB gc=%d",
		runtime.NumGoroutine(), m.Alloc>>20, m.HeapSys>>20, m.NumGC)
	logger.Printf("profiler", "      flat  flat%%   sum%%")

	var cum int64
	for i, fn := range s.functions {
		if i == p.cfg.TopN {
			break
		}
		cum += fn.flat
		logger.Printf("profiler", "%10s %5.2f%% %5.2f%%  %s",
			formatDuration(fn.flat*s.period),
			s.percent(fn.flat), s.percent(cum), fn.name)
	}
}

type summary struct {
	totalSamples int64
	period       int64 // nanoseconds per sample
	functions    []funcSamples
}

type funcSamples struct {
	name string
	flat int64
}

func (s *summary) seconds(samples int64) float64 {
	return float64(samples*s.period) / 1e9
}

func (s *summary) percent(samples int64) float64 {
	if s.totalSamples == 0 {
		return 0
	}
	return 100 * float64(samples) / float64(s.totalSamples)
}

// summarize attributes every sample to its leaf function.
func summarize(prof *profile.Profile) *summary {
	s := &summary{period: int64(time.Millisecond)}
	if len(prof.SampleType) > 0 && prof.SampleType[0].Unit == "nanoseconds" && prof.Period > 0 {
		s.period = prof.Period
	}

	flat := make(map[string]int64)
	for _, sample := range prof.Sample {
		if len(sample.Value) == 0 {
			continue
		}
		n := sample.Value[0]
		s.totalSamples += n
		if len(sample.Location) == 0 || len(sample.Location[0].Line) == 0 {
			continue
		}
		if fn := sample.Location[0].Line[0].Function; fn != nil {
			flat[fn.Name] += n
		}
	}

	s.functions = make([]funcSamples, 0, len(flat))
	for name, n := range flat {
		s.functions = append(s.functions, funcSamples{name: name, flat: n})
	}
	sort.Slice(s.functions, func(i, j int) bool {
		if s.functions[i].flat != s.functions[j].flat {
			return s.functions[i].flat > s.functions[j].flat
		}
		return s.functions[i].name < s.functions[j].name
	})
	return s
}

func formatDuration(nanos int64) string {
	d := time.Duration(nanos)
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d >= time.Microsecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	default:
		return fmt.Sprintf("%dns", nanos)
	}
}

func EnableBlockProfiling() {
	runtime.SetBlockProfileRate(1)
}
