// Package querytrace times the steps of a single request and logs them as
// a tree under the "debug-trace" category. A disabled Tracer costs nothing
// beyond the nil checks.
package querytrace

import (
	"fmt"
	"strings"
	"time"

	"github.com/greymass/workutils/libraries/logger"
)

const Category = "debug-trace"

type Tracer struct {
	enabled bool
	start   time.Time
	name    string
	subject string
	steps   []step
	outcome string
}

type step struct {
	component string
	action    string
	duration  time.Duration
	details   string
}

type StepTimer struct {
	tracer    *Tracer
	component string
	action    string
	start     time.Time
	details   string
}

// Output is the JSON form of a finished trace.
type Output struct {
	TotalMs float64      `json:"total_ms"`
	Outcome string       `json:"outcome,omitempty"`
	Steps   []StepOutput `json:"steps"`
}

type StepOutput struct {
	Component  string  `json:"component"`
	Action     string  `json:"action"`
	DurationMs float64 `json:"duration_ms"`
	Details    string  `json:"details,omitempty"`
}

// New starts a trace when the trace category is enabled.
func New(name, subject string) *Tracer {
	if !Enabled() {
		return &Tracer{}
	}
	return &Tracer{
		enabled: true,
		start:   time.Now(),
		name:    name,
		subject: subject,
		steps:   make([]step, 0, 4),
	}
}

// Enabled reports whether the operator turned tracing on. Clients may only
// ask for traces in responses when it is.
func Enabled() bool {
	return logger.IsCategoryEnabled(Category)
}

func (t *Tracer) Enabled() bool {
	return t.enabled
}

func (t *Tracer) Step(component, action string) *StepTimer {
	if !t.enabled {
		return &StepTimer{}
	}
	return &StepTimer{tracer: t, component: component, action: action, start: time.Now()}
}

func (st *StepTimer) Details(format string, args ...any) *StepTimer {
	if st.tracer != nil {
		st.details = fmt.Sprintf(format, args...)
	}
	return st
}

func (st *StepTimer) End() {
	if st.tracer == nil {
		return
	}
	st.tracer.steps = append(st.tracer.steps, step{
		component: st.component,
		action:    st.action,
		duration:  time.Since(st.start),
		details:   st.details,
	})
}

func (t *Tracer) SetOutcome(outcome string) {
	if t.enabled {
		t.outcome = outcome
	}
}

func (t *Tracer) Log() {
	if !t.enabled {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "trace %s subject=%s total=%v", t.name, t.subject, time.Since(t.start))
	if t.outcome != "" {
		fmt.Fprintf(&sb, " outcome=%s", t.outcome)
	}
	for i, s := range t.steps {
		prefix := "├─"
		if i == len(t.steps)-1 {
			prefix = "└─"
		}
		fmt.Fprintf(&sb, "\n  %s [%s] %s: %v", prefix, s.component, s.action, s.duration)
		if s.details != "" {
			fmt.Fprintf(&sb, " (%s)", s.details)
		}
	}
	logger.Printf(Category, "%s", sb.String())
}

func (t *Tracer) Output() *Output {
	if t == nil || !t.enabled {
		return nil
	}
	out := &Output{
		TotalMs: millis(time.Since(t.start)),
		Outcome: t.outcome,
		Steps:   make([]StepOutput, 0, len(t.steps)),
	}
	for _, s := range t.steps {
		out.Steps = append(out.Steps, StepOutput{
			Component:  s.component,
			Action:     s.action,
			DurationMs: millis(s.duration),
			Details:    s.details,
		})
	}
	return out
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
