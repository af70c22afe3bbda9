package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// TransportConfig configures a client Transport.
type TransportConfig struct {
	// URL is the websocket endpoint, e.g. ws://localhost:3000/ws.
	URL     string
	BoardID string

	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	ConnectTimeout    time.Duration

	Logger log.FieldLogger
}

// Transport is a reconnecting websocket client for one board room.
type Transport struct {
	cfg    TransportConfig
	logger log.FieldLogger
	dialer *websocket.Dialer

	events   chan *board.Event
	statuses chan Status

	mu      sync.Mutex
	status  Status
	lastErr error
	conn    *websocket.Conn
	connID  string
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool

	writeMu sync.Mutex
}

// NewTransport creates an idle transport. Call Connect to start it.
func NewTransport(cfg TransportConfig) *Transport {
	if cfg.BoardID == "" {
		cfg.BoardID = board.DefaultBoardID
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.ReconnectDelayMax < cfg.ReconnectDelay {
		cfg.ReconnectDelayMax = 5 * cfg.ReconnectDelay
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 20 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}

	return &Transport{
		cfg:      cfg,
		logger:   cfg.Logger.WithFields(log.Fields{"component": "transport", "board_id": cfg.BoardID}),
		dialer:   &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: cfg.ConnectTimeout},
		events:   make(chan *board.Event, 64),
		statuses: make(chan Status, 32),
		status:   StatusIdle,
	}
}

// Events delivers inbound events. Closed after Close.
func (t *Transport) Events() <-chan *board.Event { return t.events }

// StatusChanges delivers every status transition. Closed after Close.
// Transitions are dropped if the channel is full.
func (t *Transport) StatusChanges() <-chan Status { return t.statuses }

// Status returns the current connection status.
func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// LastError returns the error behind the most recent disconnect.
func (t *Transport) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// ConnectionID returns the id the server assigned to the current connection.
func (t *Transport) ConnectionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connID
}

// Connect starts the connection loop. It returns immediately; progress is
// reported through StatusChanges. Calling Connect on a running transport
// is a no-op.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transport closed")
	}
	if t.cancel != nil {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.loop(loopCtx)
	return nil
}

// Emit sends an event to the room. Fails with ErrNotConnected while the
// transport is not connected; nothing is queued.
func (t *Transport) Emit(e *board.Event) error {
	t.mu.Lock()
	conn := t.conn
	connected := t.status == StatusConnected
	t.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	data, err := board.EncodeEvent(e)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Close tears the connection down and moves to idle. The Events and
// StatusChanges channels are closed once the loop has exited.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	cancel, done, conn := t.cancel, t.done, t.conn
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		t.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		t.writeMu.Unlock()
		conn.Close()
	}
	if done != nil {
		<-done
	}

	t.setStatus(StatusIdle, nil)
	close(t.events)
	close(t.statuses)
	return nil
}

func (t *Transport) loop(ctx context.Context) {
	defer close(t.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.cfg.ReconnectDelay
	b.MaxInterval = t.cfg.ReconnectDelayMax
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		t.setStatus(StatusConnecting, nil)

		conn, err := t.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.WithError(err).Debug("Connect failed")
			t.setStatus(StatusDisconnected, err)
			if !t.wait(ctx, b.NextBackOff()) {
				return
			}
			continue
		}

		b.Reset()
		t.setConn(conn)
		t.setStatus(StatusConnected, nil)
		t.logger.WithField("connection_id", t.ConnectionID()).Info("Connected")

		err = t.readLoop(ctx, conn)
		t.setConn(nil)
		conn.Close()
		if ctx.Err() != nil {
			return
		}

		t.logger.WithError(err).Info("Disconnected")
		t.setStatus(StatusDisconnected, err)
		if !t.wait(ctx, b.NextBackOff()) {
			return
		}
	}
}

// dial opens the websocket and waits for the server's welcome, all within
// the connect timeout. The welcome is forwarded on Events.
func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(t.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url: %w", err)
	}
	q := u.Query()
	q.Set("boardId", t.cfg.BoardID)
	u.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.ConnectTimeout)
	defer cancel()

	conn, resp, err := t.dialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	deadline, _ := dialCtx.Deadline()
	conn.SetReadDeadline(deadline)
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("no welcome from server: %w", err)
	}
	welcome, err := board.DecodeEvent(data)
	if err != nil || welcome.Type != board.EventSessionWelcome {
		conn.Close()
		return nil, fmt.Errorf("unexpected first message from server")
	}

	t.mu.Lock()
	t.connID = welcome.ConnectionID
	t.mu.Unlock()

	if !t.deliver(ctx, welcome) {
		conn.Close()
		return nil, ctx.Err()
	}
	return conn, nil
}

func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		t.writeMu.Lock()
		defer t.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		ev, err := board.DecodeEvent(data)
		if err != nil {
			t.logger.WithError(err).Debug("Dropped malformed event")
			continue
		}
		if !t.deliver(ctx, ev) {
			return ctx.Err()
		}
	}
}

func (t *Transport) deliver(ctx context.Context, ev *board.Event) bool {
	select {
	case t.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Transport) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Transport) setConn(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn = conn
	if conn == nil {
		t.connID = ""
	}
}

func (t *Transport) setStatus(s Status, err error) {
	t.mu.Lock()
	changed := t.status != s
	t.status = s
	if err != nil || s == StatusConnected || s == StatusIdle {
		t.lastErr = err
	}
	t.mu.Unlock()

	if !changed {
		return
	}
	select {
	case t.statuses <- s:
	default:
		t.logger.WithField("status", s).Warn("Status change dropped")
	}
}
