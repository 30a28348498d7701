package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"

	"github.com/rileyhilliard/statwatch/internal/logger"
)

// DefaultHeartbeat is the STOMP heartbeat interval in both directions.
const DefaultHeartbeat = 4 * time.Second

// stompSubprotocols are offered during the WebSocket upgrade, newest first.
var stompSubprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

// EndpointURL turns a server base URL (http, https, ws or wss) and an
// endpoint path into the WebSocket URL to dial.
func EndpointURL(server, endpoint string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(server))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", server)
	}
	if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	u.Path = strings.TrimRight(u.Path, "/") + endpoint
	return u.String(), nil
}

// StompDialer speaks STOMP over a WebSocket connection.
type StompDialer struct {
	URL              string
	Heartbeat        time.Duration
	HandshakeTimeout time.Duration
	Header           http.Header
	Logger           logger.Logger
}

// Dial upgrades to WebSocket and performs the STOMP CONNECT handshake.
func (d *StompDialer) Dial(ctx context.Context) (Session, error) {
	log := d.Logger
	if log == nil {
		log = logger.Noop()
	}
	hb := d.Heartbeat
	if hb <= 0 {
		hb = DefaultHeartbeat
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		Subprotocols:     stompSubprotocols,
	}
	ws, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", d.URL, err)
	}

	rwc := newWSConn(ws)
	host := ""
	if u, err := url.Parse(d.URL); err == nil {
		host = u.Hostname()
	}

	type result struct {
		conn *stomp.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := stomp.Connect(rwc,
			stomp.ConnOpt.HeartBeat(hb, hb),
			stomp.ConnOpt.Host(host),
		)
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			rwc.Close()
			return nil, fmt.Errorf("stomp connect: %w", r.err)
		}
		log.Debug("stomp session established with %s", d.URL)
		return &stompSession{
			conn:      r.conn,
			ws:        rwc,
			heartbeat: hb,
			done:      make(chan struct{}),
		}, nil
	case <-ctx.Done():
		rwc.Close()
		<-done
		return nil, ctx.Err()
	}
}

type stompSession struct {
	conn      *stomp.Conn
	ws        *wsConn
	heartbeat time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func (s *stompSession) Subscribe(topic string) (<-chan Message, error) {
	sub, err := s.conn.Subscribe(topic, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan Message)
	go s.pump(sub, out)
	return out, nil
}

func (s *stompSession) pump(sub *stomp.Subscription, out chan<- Message) {
	defer close(out)

	for {
		var m Message
		select {
		case <-s.done:
			return
		case msg, ok := <-sub.C:
			switch {
			case !ok:
				m = Message{Err: s.classify(nil)}
			case msg.Err != nil:
				m = Message{Err: s.classify(msg.Err)}
			default:
				m = Message{Body: msg.Body}
			}
		}

		select {
		case out <- m:
		case <-s.done:
			return
		}
		if m.Err != nil {
			return
		}
	}
}

// classify maps the way a subscription ended onto the transport errors the
// manager understands. The stomp client reports a dropped socket and a missed
// heartbeat as a synthesized ERROR frame, so a peer error is only trusted when
// an ERROR frame actually came off the wire.
func (s *stompSession) classify(err error) error {
	var serr *stomp.Error
	if errors.As(err, &serr) && serr.Frame != nil && serr.Frame.Command == frame.ERROR && s.ws.sawPeerError() {
		return &ProtocolError{Message: serr.Message}
	}
	if remote := s.ws.remoteErr(); remote != nil {
		return fmt.Errorf("%w: %v", ErrClosed, remote)
	}
	if s.ws.idleFor() > s.heartbeat {
		return ErrHeartbeatTimeout
	}
	if err == nil {
		return ErrClosed
	}
	return fmt.Errorf("%w: %v", ErrClosed, err)
}

func (s *stompSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.conn.MustDisconnect(); err != nil {
			s.ws.Close()
		}
	})
	return nil
}

// wsConn adapts a message-oriented WebSocket into the byte stream the stomp
// client reads and writes. Every Write is sent as one text message. Inbound
// messages are read whole so frame commands can be inspected.
type wsConn struct {
	ws *websocket.Conn
	r  *bytes.Reader

	wmu sync.Mutex

	lastRead  atomic.Int64 // unix nanos
	peerError atomic.Bool

	errMu  sync.Mutex
	err    error
	closed atomic.Bool
}

func newWSConn(ws *websocket.Conn) *wsConn {
	c := &wsConn{ws: ws}
	c.lastRead.Store(time.Now().UnixNano())
	return c
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil || c.r.Len() == 0 {
			_, r, err := c.ws.NextReader()
			if err != nil {
				c.fail(err)
				return 0, err
			}
			msg, err := io.ReadAll(r)
			if err != nil {
				c.fail(err)
				return 0, err
			}
			c.lastRead.Store(time.Now().UnixNano())
			if bytes.HasPrefix(bytes.TrimLeft(msg, "\r\n"), []byte(frame.ERROR+"\n")) {
				c.peerError.Store(true)
			}
			c.r = bytes.NewReader(msg)
			continue
		}
		return c.r.Read(p)
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.ws.Close()
}

// fail records the first read failure that was not caused by a local Close.
func (c *wsConn) fail(err error) {
	if c.closed.Load() {
		return
	}
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *wsConn) remoteErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *wsConn) sawPeerError() bool {
	return c.peerError.Load()
}

func (c *wsConn) idleFor() time.Duration {
	return time.Since(time.Unix(0, c.lastRead.Load()))
}
