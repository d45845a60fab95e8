package dateconv

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/greymass/workutils/libraries/blocktime"
)

type lookupReply struct {
	ts  int64
	err error
}

// gatedSource answers a height only when the test releases it.
type gatedSource struct {
	gates map[uint64]chan lookupReply
}

func newGatedSource(heights ...uint64) *gatedSource {
	g := &gatedSource{gates: make(map[uint64]chan lookupReply)}
	for _, h := range heights {
		g.gates[h] = make(chan lookupReply, 1)
	}
	return g
}

func (g *gatedSource) BlockTime(ctx context.Context, height uint64) (int64, error) {
	gate, ok := g.gates[height]
	if !ok {
		return 0, errors.New("unexpected height")
	}
	select {
	case r := <-gate:
		return r.ts, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func startSession(t *testing.T, source blocktime.Source, opts ...Option) (*Session, chan Outcome) {
	t.Helper()
	outcomes := make(chan Outcome, 16)
	opts = append(opts, WithObserver(func(o Outcome) { outcomes <- o }))
	s := NewSession(newTestController(t), source, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, outcomes
}

func nextOutcome(t *testing.T, outcomes <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-outcomes:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lookup")
	}
	return 0
}

func submit(t *testing.T, s *Session, e Edit) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.Submit(ctx, e)
}

func snapshot(t *testing.T, s *Session) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return st
}

func TestSessionEdit(t *testing.T) {
	s, _ := startSession(t, newGatedSource())

	if err := submit(t, s, Edit{FieldTimestamp, "1717252459"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	consistent(t, snapshot(t, s), 1717252459, "UTC")

	if err := submit(t, s, Edit{FieldTimestamp, "x"}); err == nil {
		t.Fatal("expected error")
	}
	st := snapshot(t, s)
	if st.Timestamp != "1717252459" || st.Error == "" {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestSessionUpdatesLatestWins(t *testing.T) {
	s, _ := startSession(t, newGatedSource())
	for _, ts := range []string{"1", "2", "3"} {
		if err := submit(t, s, Edit{FieldTimestamp, ts}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	select {
	case st := <-s.Updates():
		if st.Timestamp != "3" {
			t.Errorf("timestamp = %q, want 3", st.Timestamp)
		}
	case <-time.After(time.Second):
		t.Fatal("no update")
	}
}

func TestSessionBlockLookup(t *testing.T) {
	src := newGatedSource(250000000)
	s, outcomes := startSession(t, src)

	if err := submit(t, s, Edit{FieldBlock, "250000000"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st := snapshot(t, s); !st.Loading {
		t.Errorf("expected loading, got %+v", st)
	}

	src.gates[250000000] <- lookupReply{ts: 1705000000}
	if o := nextOutcome(t, outcomes); o != Applied {
		t.Fatalf("outcome = %s", o)
	}
	st := snapshot(t, s)
	consistent(t, st, 1705000000, "UTC")
	if st.Loading || st.Block != "250000000" {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestSessionStaleLookupDiscarded(t *testing.T) {
	src := newGatedSource(100, 101)
	s, outcomes := startSession(t, src)

	submit(t, s, Edit{FieldBlock, "100"})
	submit(t, s, Edit{FieldBlock, "101"})

	src.gates[100] <- lookupReply{ts: 1000}
	if o := nextOutcome(t, outcomes); o != Discarded {
		t.Fatalf("first outcome = %s, want discarded", o)
	}
	st := snapshot(t, s)
	if st.Timestamp != "0" || !st.Loading {
		t.Errorf("stale result leaked: %+v", st)
	}

	src.gates[101] <- lookupReply{ts: 1010}
	if o := nextOutcome(t, outcomes); o != Applied {
		t.Fatalf("second outcome = %s, want applied", o)
	}
	if st := snapshot(t, s); st.Timestamp != "1010" {
		t.Errorf("timestamp = %q", st.Timestamp)
	}
}

func TestSessionLookupFailure(t *testing.T) {
	src := newGatedSource(5)
	s, outcomes := startSession(t, src)

	submit(t, s, Edit{FieldBlock, "5"})
	src.gates[5] <- lookupReply{err: &blocktime.LookupError{Height: 5, Reason: "block time not available"}}
	if o := nextOutcome(t, outcomes); o != Failed {
		t.Fatalf("outcome = %s", o)
	}
	st := snapshot(t, s)
	if !strings.HasPrefix(st.Error, "failed to get block: block time not available") || st.Loading {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestSessionBlockParseError(t *testing.T) {
	s, outcomes := startSession(t, newGatedSource())
	if err := submit(t, s, Edit{FieldBlock, "-1"}); err == nil {
		t.Fatal("expected parse error")
	}
	select {
	case o := <-outcomes:
		t.Errorf("no lookup expected, got %s", o)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionLookupTimeout(t *testing.T) {
	src := newGatedSource(9)
	s, outcomes := startSession(t, src, WithTimeout(20*time.Millisecond))

	submit(t, s, Edit{FieldBlock, "9"})
	if o := nextOutcome(t, outcomes); o != Failed {
		t.Fatalf("outcome = %s", o)
	}
	if st := snapshot(t, s); !strings.Contains(st.Error, context.DeadlineExceeded.Error()) {
		t.Errorf("error = %q", st.Error)
	}
}

func TestSessionSharedCache(t *testing.T) {
	var calls atomic.Int32
	cache := blocktime.NewCache(blocktime.SourceFunc(func(ctx context.Context, height uint64) (int64, error) {
		calls.Add(1)
		return int64(height) * 10, nil
	}))
	s, outcomes := startSession(t, cache)

	for _, text := range []string{"7", "8", "7"} {
		submit(t, s, Edit{FieldBlock, text})
		if o := nextOutcome(t, outcomes); o != Applied {
			t.Fatalf("%s: outcome = %s", text, o)
		}
	}
	if st := snapshot(t, s); st.Timestamp != "70" {
		t.Errorf("timestamp = %q", st.Timestamp)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("source called %d times, want 2", n)
	}
}

func TestSessionClosed(t *testing.T) {
	s := NewSession(newTestController(t), newGatedSource())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run = %v", err)
	}
	if err := submit(t, s, Edit{FieldNow, ""}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("submit after close = %v", err)
	}
}
