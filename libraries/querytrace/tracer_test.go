package querytrace

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/greymass/workutils/libraries/logger"
)

func enableTracing(t *testing.T, on bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.RegisterCategories(Category)
	if on {
		logger.SetMinLevel(logger.LevelDebug)
		logger.SetCategoryFilter([]string{Category})
	} else {
		logger.SetCategoryFilter([]string{"unrelated"})
	}
	t.Cleanup(func() {
		logger.SetCategoryFilter(nil)
		logger.SetMinLevel(logger.LevelInfo)
		logger.SetOutput(nil)
	})
	return &buf
}

func TestDisabled(t *testing.T) {
	buf := enableTracing(t, false)

	tr := New("blocktime", "42")
	if tr.Enabled() || Enabled() {
		t.Fatal("tracer should be disabled")
	}
	tr.Step("cache", "get").Details("x=%d", 1).End()
	tr.SetOutcome("hit")
	tr.Log()
	if tr.Output() != nil {
		t.Error("disabled tracer should have no output")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected log output %q", buf.String())
	}
}

func TestTrace(t *testing.T) {
	buf := enableTracing(t, true)

	tr := New("blocktime", "42")
	if !tr.Enabled() {
		t.Fatal("tracer should be enabled")
	}
	tr.Step("cache", "get").Details("miss").End()
	st := tr.Step("rpc", "getBlockTime")
	time.Sleep(2 * time.Millisecond)
	st.End()
	tr.SetOutcome("fetched")

	out := tr.Output()
	if out == nil || len(out.Steps) != 2 {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.Steps[0].Component != "cache" || out.Steps[0].Details != "miss" {
		t.Errorf("first step %+v", out.Steps[0])
	}
	if out.Steps[1].DurationMs < 2 || out.TotalMs < out.Steps[1].DurationMs {
		t.Errorf("durations %+v", out)
	}
	if out.Outcome != "fetched" {
		t.Errorf("outcome = %q", out.Outcome)
	}

	tr.Log()
	logged := buf.String()
	for _, want := range []string{"trace blocktime subject=42", "outcome=fetched", "├─ [cache] get", "└─ [rpc] getBlockTime", "(miss)"} {
		if !strings.Contains(logged, want) {
			t.Errorf("log %q missing %q", logged, want)
		}
	}
}

func TestNilOutput(t *testing.T) {
	var tr *Tracer
	if tr.Output() != nil {
		t.Error("nil tracer should have no output")
	}
}
