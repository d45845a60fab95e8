// Package panel serves the date and byte converter panels over a websocket.
// Each connection is one session: the client sends edits and the server
// answers with full snapshots of the panel that changed.
package panel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/greymass/workutils/libraries/blocktime"
	"github.com/greymass/workutils/libraries/byteconv"
	"github.com/greymass/workutils/libraries/logger"
	"github.com/greymass/workutils/libraries/tzdb"
	"github.com/greymass/workutils/services/workutils/internal/dateconv"
	"github.com/greymass/workutils/services/workutils/internal/metrics"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	PanelDate  = "date"
	PanelBytes = "bytes"
)

type ClientMessage struct {
	Type  string `json:"type"`
	Panel string `json:"panel"`
	Field string `json:"field"`
	Value string `json:"value"`
}

type ZonesMessage struct {
	Type    string   `json:"type"`
	Session string   `json:"session"`
	Zones   []string `json:"zones"`
}

type DateMessage struct {
	Type  string         `json:"type"`
	State dateconv.State `json:"state"`
}

type BytesMessage struct {
	Type  string         `json:"type"`
	State byteconv.State `json:"state"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Config struct {
	MaxConnections int
	LookupTimeout  time.Duration
	WriteTimeout   time.Duration
}

// Server accepts panel sessions. All sessions share one block time source,
// normally a *blocktime.Cache.
type Server struct {
	resolver dateconv.Resolver
	source   blocktime.Source
	zones    []string
	cfg      Config

	mu     sync.Mutex
	conns  map[string]context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup
}

func NewServer(resolver dateconv.Resolver, source blocktime.Source, cfg Config) *Server {
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 1000
	}
	if cfg.LookupTimeout == 0 {
		cfg.LookupTimeout = dateconv.DefaultLookupTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Server{
		resolver: resolver,
		source:   source,
		zones:    tzdb.Names(),
		cfg:      cfg,
		conns:    make(map[string]context.CancelFunc),
	}
}

func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close ends every session and waits for them to finish.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	for _, cancel := range s.conns {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	if s.ConnectionCount() >= s.cfg.MaxConnections {
		metrics.SessionsRejected.Inc()
		http.Error(w, "max connections reached", http.StatusServiceUnavailable)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		logger.Warning("WebSocket accept error: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := s.newConn(ws)

	s.mu.Lock()
	s.conns[c.id] = cancel
	count := len(s.conns)
	s.mu.Unlock()
	s.wg.Add(1)
	defer s.wg.Done()

	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.Inc()
	logger.Printf("session", "Session %s connected from %s (%d/%d)", c.id, r.RemoteAddr, count, s.cfg.MaxConnections)
	start := time.Now()

	var tasks sync.WaitGroup
	tasks.Add(2)
	go func() {
		defer tasks.Done()
		c.session.Run(ctx)
	}()
	go func() {
		defer tasks.Done()
		defer cancel()
		if err := c.writeLoop(ctx, s.zones); err != nil && ctx.Err() == nil {
			logger.Printf("debug-session", "Session %s write error: %v", c.id, err)
		}
	}()

	if err := c.readLoop(ctx); err != nil && ctx.Err() == nil {
		logger.Printf("debug-session", "Session %s read error: %v", c.id, err)
	}
	cancel()
	tasks.Wait()

	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	metrics.SessionsActive.Dec()

	ws.Close(websocket.StatusNormalClosure, "")
	logger.Printf("session", "Session %s closed after %s", c.id, time.Since(start).Round(time.Millisecond))
}

// conn is one websocket client. Only writeLoop writes to ws; the read loop
// hands it byte snapshots and protocol errors over channels.
type conn struct {
	id           string
	ws           *websocket.Conn
	session      *dateconv.Session
	bytes        *byteconv.Panel
	bytesOut     chan byteconv.State
	errs         chan string
	writeTimeout time.Duration
}

func (s *Server) newConn(ws *websocket.Conn) *conn {
	ctrl := dateconv.NewController(s.resolver, nil)
	session := dateconv.NewSession(ctrl, s.source,
		dateconv.WithTimeout(s.cfg.LookupTimeout),
		dateconv.WithObserver(func(o dateconv.Outcome) {
			metrics.LookupsTotal.WithLabelValues(o.String()).Inc()
		}),
	)
	return &conn{
		id:           uuid.NewString(),
		ws:           ws,
		session:      session,
		bytes:        byteconv.NewPanel(),
		bytesOut:     make(chan byteconv.State, 1),
		errs:         make(chan string, 8),
		writeTimeout: s.cfg.WriteTimeout,
	}
}

func (c *conn) readLoop(ctx context.Context) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, c.ws, &msg); err != nil {
			return err
		}
		if msg.Type != "edit" {
			c.sendError("unknown message type: " + msg.Type)
			continue
		}

		switch msg.Panel {
		case PanelDate:
			err := c.session.Submit(ctx, dateconv.Edit{Field: dateconv.Field(msg.Field), Value: msg.Value})
			if errors.Is(err, dateconv.ErrUnknownField) {
				c.sendError(err.Error())
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			countEdit(PanelDate, err)
		case PanelBytes:
			err := c.bytes.Edit(byteconv.Field(msg.Field), msg.Value)
			if errors.Is(err, byteconv.ErrUnknownField) {
				c.sendError(err.Error())
				continue
			}
			countEdit(PanelBytes, err)
			c.publishBytes()
		default:
			c.sendError("unknown panel: " + msg.Panel)
		}
	}
}

func countEdit(panel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.EditsTotal.WithLabelValues(panel, result).Inc()
}

// publishBytes replaces any snapshot the writer has not sent yet.
func (c *conn) publishBytes() {
	select {
	case <-c.bytesOut:
	default:
	}
	c.bytesOut <- c.bytes.State()
}

func (c *conn) sendError(message string) {
	select {
	case c.errs <- message:
	default:
		logger.Printf("debug-session", "Session %s dropped error: %s", c.id, message)
	}
}

func (c *conn) writeLoop(ctx context.Context, zones []string) error {
	if err := c.write(ctx, ZonesMessage{Type: "zones", Session: c.id, Zones: zones}); err != nil {
		return err
	}
	if err := c.write(ctx, BytesMessage{Type: PanelBytes, State: byteconv.State{}}); err != nil {
		return err
	}
	for {
		var msg interface{}
		select {
		case <-ctx.Done():
			return nil
		case st := <-c.session.Updates():
			msg = DateMessage{Type: PanelDate, State: st}
		case st := <-c.bytesOut:
			msg = BytesMessage{Type: PanelBytes, State: st}
		case text := <-c.errs:
			msg = ErrorMessage{Type: "error", Message: text}
		}
		if err := c.write(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *conn) write(ctx context.Context, msg interface{}) error {
	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, c.ws, msg)
}
