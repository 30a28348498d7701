// Package stream maintains the long-lived telemetry subscription. The Manager
// drives an explicit connection state machine over an injectable transport and
// is the only writer into the history store.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sourcegraph/conc"

	"github.com/rileyhilliard/statwatch/internal/logger"
	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

// State is the connection state owned by the Manager.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Reasons reported with state changes.
const (
	ReasonDisconnected = "Disconnected from server"
	ReasonPeerError    = "WebSocket error"
	ReasonTimeout      = "Connection timed out"
)

// Defaults matching the backend's client settings.
const (
	DefaultTopic            = "/topic/stats"
	DefaultReconnectDelay   = 3 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
)

// Sink receives normalized snapshots. *store.Store satisfies it.
type Sink interface {
	Update(telemetry.Snapshot)
}

// Options configures a Manager. Zero values take the defaults above.
type Options struct {
	Topic            string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	Logger           logger.Logger
}

// Manager keeps one subscription alive, reconnecting after a fixed delay for
// as long as it is started.
type Manager struct {
	dialer Dialer
	sink   Sink
	opts   Options
	log    logger.Logger

	mu       sync.Mutex
	state    State
	lastErr  string
	onFrame  func(telemetry.Snapshot)
	onChange func(State, string)
	cancel   context.CancelFunc
	wg       *conc.WaitGroup
}

// NewManager creates an idle manager that writes into sink.
func NewManager(dialer Dialer, sink Sink, opts Options) *Manager {
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	return &Manager{
		dialer: dialer,
		sink:   sink,
		opts:   opts,
		log:    log,
	}
}

// OnFrame registers fn to run after each snapshot is stored. Callbacks run on
// the manager goroutine and must not call Stop.
func (m *Manager) OnFrame(fn func(telemetry.Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFrame = fn
}

// OnConnectionChange registers fn to run on every state or error change.
// Callbacks run on the manager goroutine and must not call Stop.
func (m *Manager) OnConnectionChange(fn func(State, string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// State returns the current state and last error message.
func (m *Manager) State() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.lastErr
}

// Start begins connecting in the background. Calling Start on a running
// manager does nothing.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg = conc.NewWaitGroup()
	m.wg.Go(func() { m.run(ctx) })
}

// Stop tears down the session and returns the manager to Idle. No callback
// fires after Stop returns. Stop is idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, wg := m.cancel, m.wg
	m.cancel, m.wg = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	wg.Wait()

	m.mu.Lock()
	m.state, m.lastErr = StateIdle, ""
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context) {
	b := &backoff.Backoff{
		Min:    m.opts.ReconnectDelay,
		Max:    m.opts.ReconnectDelay,
		Factor: 1,
	}

	reason := ""
	for {
		reason = m.session(ctx, reason)
		if ctx.Err() != nil {
			return
		}

		delay := b.Duration()
		m.log.Debug("reconnecting in %s", delay)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// session runs one connect/consume cycle and returns the error message to
// carry into the next Connecting notification.
func (m *Manager) session(ctx context.Context, prevErr string) string {
	m.notify(ctx, StateConnecting, prevErr)

	dialCtx, cancel := context.WithTimeout(ctx, m.opts.HandshakeTimeout)
	sess, err := m.dialer.Dial(dialCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		msg := handshakeReason(err)
		m.log.Warn("handshake failed: %v", err)
		m.notify(ctx, StateConnecting, msg)
		return msg
	}
	defer func() {
		if err := sess.Close(); err != nil {
			m.log.Debug("session close: %v", err)
		}
	}()

	msgs, err := sess.Subscribe(m.opts.Topic)
	if err != nil {
		msg := handshakeReason(err)
		m.log.Warn("subscribe %s failed: %v", m.opts.Topic, err)
		m.notify(ctx, StateConnecting, msg)
		return msg
	}

	m.log.Info("connected, subscribed to %s", m.opts.Topic)
	m.notify(ctx, StateConnected, "")

	for {
		select {
		case <-ctx.Done():
			return ""
		case msg, ok := <-msgs:
			if !ok {
				return m.disconnected(ctx, ErrClosed)
			}
			if msg.Err != nil {
				return m.disconnected(ctx, msg.Err)
			}
			m.handle(ctx, msg.Body)
		}
	}
}

func (m *Manager) disconnected(ctx context.Context, err error) string {
	reason := disconnectReason(err)
	if ctx.Err() == nil {
		m.log.Warn("stream ended: %v", err)
	}
	m.notify(ctx, StateDisconnected, reason)
	return reason
}

// handle decodes one frame body. Malformed bodies are logged and dropped
// without touching the connection.
func (m *Manager) handle(ctx context.Context, body []byte) {
	var frame map[string]any
	if err := json.Unmarshal(body, &frame); err != nil {
		m.log.Warn("dropping malformed frame (%d bytes): %v", len(body), err)
		return
	}

	snap := telemetry.Normalize(frame)
	m.sink.Update(snap)

	m.mu.Lock()
	fn := m.onFrame
	m.mu.Unlock()
	if fn != nil && ctx.Err() == nil {
		fn(snap)
	}
}

// notify records the transition and fires the callback when the state or the
// error message changed. Nothing is reported once ctx is cancelled.
func (m *Manager) notify(ctx context.Context, state State, errMsg string) {
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	if m.state == state && m.lastErr == errMsg {
		m.mu.Unlock()
		return
	}
	m.state, m.lastErr = state, errMsg
	fn := m.onChange
	m.mu.Unlock()

	m.log.Debug("state %s %q", state, errMsg)
	if fn != nil {
		fn(state, errMsg)
	}
}

func handshakeReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return err.Error()
}

func disconnectReason(err error) string {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		if perr.Message == "" {
			return ReasonPeerError
		}
		return perr.Message
	}
	return ReasonDisconnected
}
