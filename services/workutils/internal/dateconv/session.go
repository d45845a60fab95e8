package dateconv

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/greymass/workutils/libraries/blocktime"
	"github.com/greymass/workutils/libraries/logger"
)

const DefaultLookupTimeout = 30 * time.Second

var ErrSessionClosed = errors.New("session closed")

// Session owns a Controller on a single goroutine. Edits and lookup
// completions arrive on one inbox and are applied in order; block lookups
// run in the background and never touch the state directly.
type Session struct {
	ctrl     *Controller
	source   blocktime.Source
	timeout  time.Duration
	observer func(Outcome)

	inbox   chan interface{}
	updates chan State
	done    chan struct{}
	wg      sync.WaitGroup
}

type Option func(*Session)

// WithTimeout bounds each block lookup. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithObserver is called on the session goroutine after each lookup
// completion is resolved.
func WithObserver(fn func(Outcome)) Option {
	return func(s *Session) { s.observer = fn }
}

type editRequest struct {
	edit  Edit
	reply chan error
}

type snapshotRequest struct {
	reply chan State
}

type lookupResult struct {
	trigger string
	height  uint64
	ts      int64
	err     error
}

func NewSession(ctrl *Controller, source blocktime.Source, opts ...Option) *Session {
	s := &Session{
		ctrl:    ctrl,
		source:  source,
		timeout: DefaultLookupTimeout,
		inbox:   make(chan interface{}, 16),
		updates: make(chan State, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Updates carries the latest state after every change. Older snapshots a
// reader has not taken yet are replaced.
func (s *Session) Updates() <-chan State {
	return s.updates
}

// Run processes the inbox until ctx is done, then waits for outstanding
// lookups to give up.
func (s *Session) Run(ctx context.Context) error {
	defer func() {
		close(s.done)
		s.wg.Wait()
	}()
	s.publish()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.inbox:
			s.handle(ctx, msg)
		}
	}
}

// Submit applies e and returns its error. A nil error for a block edit
// only means the height parsed; the lookup result arrives on Updates.
func (s *Session) Submit(ctx context.Context, e Edit) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, editRequest{edit: e, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := s.send(ctx, snapshotRequest{reply: reply}); err != nil {
		return State{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return State{}, ErrSessionClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (s *Session) send(ctx context.Context, msg interface{}) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) handle(ctx context.Context, msg interface{}) {
	switch m := msg.(type) {
	case editRequest:
		err := s.apply(ctx, m.edit)
		s.publish()
		m.reply <- err
	case snapshotRequest:
		m.reply <- s.ctrl.State()
	case lookupResult:
		var outcome Outcome
		if m.err != nil {
			outcome = s.ctrl.FailBlockTime(m.trigger, m.err)
		} else {
			outcome = s.ctrl.ApplyBlockTime(m.trigger, m.ts)
		}
		logger.Printf("debug-session", "lookup block=%d trigger=%q %s", m.height, m.trigger, outcome)
		if outcome != Discarded {
			s.publish()
		}
		if s.observer != nil {
			s.observer(outcome)
		}
	}
}

func (s *Session) apply(ctx context.Context, e Edit) error {
	if e.Field != FieldBlock {
		err := s.ctrl.Apply(e)
		if err != nil {
			logger.Printf("debug-session", "edit %s=%q: %v", e.Field, e.Value, err)
		}
		return err
	}
	height, err := s.ctrl.EditBlock(e.Value)
	if err != nil {
		return err
	}
	s.lookup(ctx, e.Value, height)
	return nil
}

func (s *Session) lookup(ctx context.Context, trigger string, height uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		lctx, cancel := ctx, context.CancelFunc(func() {})
		if s.timeout > 0 {
			lctx, cancel = context.WithTimeout(ctx, s.timeout)
		}
		defer cancel()

		ts, err := s.source.BlockTime(lctx, height)
		if err != nil {
			logger.Printf("lookup", "block %d: %v", height, err)
		}
		select {
		case s.inbox <- lookupResult{trigger: trigger, height: height, ts: ts, err: err}:
		case <-ctx.Done():
		}
	}()
}

// publish replaces any unread snapshot. Only the session goroutine sends,
// so the send after draining cannot block.
func (s *Session) publish() {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- s.ctrl.State()
}
