package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/statwatch/internal/logger"
	"github.com/rileyhilliard/statwatch/internal/store"
	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

const waitFor = 2 * time.Second

// fakeSession hands the test a channel to push messages through.
type fakeSession struct {
	msgs   chan Message
	topic  string
	closed chan struct{}
	once   sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{msgs: make(chan Message, 16), closed: make(chan struct{})}
}

func (s *fakeSession) Subscribe(topic string) (<-chan Message, error) {
	s.topic = topic
	return s.msgs, nil
}

func (s *fakeSession) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// fakeDialer returns queued results in order, then blocks until ctx ends.
type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	dials   int
}

type dialResult struct {
	sess *fakeSession
	err  error
}

func (d *fakeDialer) push(r dialResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, r)
}

func (d *fakeDialer) Dial(ctx context.Context) (Session, error) {
	d.mu.Lock()
	d.dials++
	if len(d.results) == 0 {
		d.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	r := d.results[0]
	d.results = d.results[1:]
	d.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	return r.sess, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type transition struct {
	State State
	Err   string
}

// recorder collects state changes for assertions.
type recorder struct {
	mu     sync.Mutex
	events []transition
	frames []telemetry.Snapshot
}

func (r *recorder) onChange(s State, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, transition{s, msg})
}

func (r *recorder) onFrame(s telemetry.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, s)
}

func (r *recorder) transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.events...)
}

func (r *recorder) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recorder) states() []State {
	var out []State
	for _, t := range r.transitions() {
		out = append(out, t.State)
	}
	return out
}

func newTestManager(t *testing.T, d Dialer, st Sink) (*Manager, *recorder) {
	t.Helper()
	m := NewManager(d, st, Options{
		ReconnectDelay:   20 * time.Millisecond,
		HandshakeTimeout: 200 * time.Millisecond,
		Logger:           logger.NewBufferLogger(),
	})
	rec := &recorder{}
	m.OnConnectionChange(rec.onChange)
	m.OnFrame(rec.onFrame)
	t.Cleanup(m.Stop)
	return m, rec
}

// waitState waits until the callback for want has been delivered, which
// happens after the manager records the state.
func waitState(t *testing.T, rec *recorder, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		tr := rec.transitions()
		return len(tr) > 0 && tr[len(tr)-1].State == want
	}, waitFor, 5*time.Millisecond, "never reached %s", want)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateDisconnected, "disconnected"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(&fakeDialer{}, store.New(), Options{})

	assert.Equal(t, DefaultTopic, m.opts.Topic)
	assert.Equal(t, DefaultReconnectDelay, m.opts.ReconnectDelay)
	assert.Equal(t, DefaultHandshakeTimeout, m.opts.HandshakeTimeout)

	s, msg := m.State()
	assert.Equal(t, StateIdle, s)
	assert.Empty(t, msg)
}

func TestManager_ConnectCloseReconnect(t *testing.T) {
	sess := newFakeSession()
	d := &fakeDialer{}
	d.push(dialResult{sess: sess})

	m, rec := newTestManager(t, d, store.New())
	m.Start()
	waitState(t, rec, StateConnected)
	assert.Equal(t, DefaultTopic, sess.topic)

	sess.msgs <- Message{Err: ErrClosed}

	require.Eventually(t, func() bool { return len(rec.transitions()) >= 4 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []transition{
		{StateConnecting, ""},
		{StateConnected, ""},
		{StateDisconnected, ReasonDisconnected},
		{StateConnecting, ReasonDisconnected},
	}, rec.transitions()[:4])

	select {
	case <-sess.closed:
	case <-time.After(waitFor):
		t.Fatal("session was not closed after disconnect")
	}
}

func TestManager_ChannelCloseIsDisconnect(t *testing.T) {
	sess := newFakeSession()
	d := &fakeDialer{}
	d.push(dialResult{sess: sess})

	m, rec := newTestManager(t, d, store.New())
	m.Start()
	waitState(t, rec, StateConnected)

	close(sess.msgs)

	require.Eventually(t, func() bool { return len(rec.transitions()) >= 3 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, transition{StateDisconnected, ReasonDisconnected}, rec.transitions()[2])
}

func TestManager_DisconnectReasons(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"heartbeat expiry", ErrHeartbeatTimeout, ReasonDisconnected},
		{"plain close", ErrClosed, ReasonDisconnected},
		{"other transport error", errors.New("broken pipe"), ReasonDisconnected},
		{"peer error frame", &ProtocolError{Message: "Access denied"}, "Access denied"},
		{"peer error without message", &ProtocolError{}, ReasonPeerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newFakeSession()
			d := &fakeDialer{}
			d.push(dialResult{sess: sess})

			m, rec := newTestManager(t, d, store.New())
			m.Start()
			waitState(t, rec, StateConnected)

			sess.msgs <- Message{Err: tt.err}

			require.Eventually(t, func() bool { return len(rec.transitions()) >= 3 }, waitFor, 5*time.Millisecond)
			assert.Equal(t, transition{StateDisconnected, tt.want}, rec.transitions()[2])
		})
	}
}

func TestManager_FramesReachStoreAndCallback(t *testing.T) {
	sess := newFakeSession()
	d := &fakeDialer{}
	d.push(dialResult{sess: sess})
	st := store.New()

	m, rec := newTestManager(t, d, st)
	m.Start()
	waitState(t, rec, StateConnected)

	sess.msgs <- Message{Body: []byte(`{"timestamp": 1, "cpu": {"usagePercent": 12}}`)}
	sess.msgs <- Message{Body: []byte(`{"timestamp": 2, "gpu": {"name": "legacy", "usagePercent": 40}}`)}

	require.Eventually(t, func() bool { return rec.frameCount() == 2 }, waitFor, 5*time.Millisecond)
	require.Equal(t, 2, st.Len())
	assert.Equal(t, 12.0, st.History()[0].CPU.UsagePercent)

	cur := st.Current()
	assert.Equal(t, int64(2), cur.Timestamp)
	require.Len(t, cur.Devices, 1)
	assert.Equal(t, "legacy", cur.Devices[0].Name)
}

func TestManager_MalformedFrameIsDropped(t *testing.T) {
	sess := newFakeSession()
	d := &fakeDialer{}
	d.push(dialResult{sess: sess})
	st := store.New()
	log := logger.NewBufferLogger()

	m := NewManager(d, st, Options{ReconnectDelay: 20 * time.Millisecond, Logger: log})
	rec := &recorder{}
	m.OnConnectionChange(rec.onChange)
	m.OnFrame(rec.onFrame)
	t.Cleanup(m.Stop)

	m.Start()
	waitState(t, rec, StateConnected)

	sess.msgs <- Message{Body: []byte(`{"timestamp": 1}`)}
	sess.msgs <- Message{Body: []byte(`{not json`)}
	sess.msgs <- Message{Body: []byte(`[1, 2, 3]`)}
	sess.msgs <- Message{Body: []byte(`{"timestamp": 2}`)}

	require.Eventually(t, func() bool { return rec.frameCount() == 2 }, waitFor, 5*time.Millisecond)

	state, msg := m.State()
	assert.Equal(t, StateConnected, state)
	assert.Empty(t, msg)
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, int64(2), st.Current().Timestamp)
	assert.True(t, log.Contains("warn", "malformed frame"))
	assert.Equal(t, []State{StateConnecting, StateConnected}, rec.states())
}

func TestManager_HandshakeFailureRetries(t *testing.T) {
	sess := newFakeSession()
	d := &fakeDialer{}
	d.push(dialResult{err: errors.New("connection refused")})
	d.push(dialResult{sess: sess})

	m, rec := newTestManager(t, d, store.New())
	m.Start()
	waitState(t, rec, StateConnected)

	assert.Equal(t, 2, d.count())
	assert.Equal(t, []transition{
		{StateConnecting, ""},
		{StateConnecting, "connection refused"},
		{StateConnected, ""},
	}, rec.transitions())
}

func TestManager_HandshakeTimeout(t *testing.T) {
	d := &fakeDialer{} // no results: every dial blocks until its deadline

	m, rec := newTestManager(t, d, store.New())
	m.Start()

	require.Eventually(t, func() bool {
		_, msg := m.State()
		return msg == ReasonTimeout
	}, waitFor, 5*time.Millisecond)

	state, _ := m.State()
	assert.Equal(t, StateConnecting, state)
	assert.Equal(t, transition{StateConnecting, ""}, rec.transitions()[0])

	require.Eventually(t, func() bool { return d.count() >= 2 }, waitFor, 5*time.Millisecond, "dial is retried")
	for _, tr := range rec.transitions() {
		assert.Equal(t, StateConnecting, tr.State)
	}
}

func TestManager_StartIsIdempotent(t *testing.T) {
	sess := newFakeSession()
	d := &fakeDialer{}
	d.push(dialResult{sess: sess})

	m, rec := newTestManager(t, d, store.New())
	m.Start()
	m.Start()
	waitState(t, rec, StateConnected)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, d.count())
}

func TestManager_StopIsIdempotentAndSilent(t *testing.T) {
	sess := newFakeSession()
	d := &fakeDialer{}
	d.push(dialResult{sess: sess})
	st := store.New()

	m, rec := newTestManager(t, d, st)
	m.Stop() // before Start

	m.Start()
	waitState(t, rec, StateConnected)

	m.Stop()
	m.Stop()

	state, msg := m.State()
	assert.Equal(t, StateIdle, state)
	assert.Empty(t, msg)

	before := rec.transitions()
	frames := rec.frameCount()

	select {
	case <-sess.closed:
	case <-time.After(waitFor):
		t.Fatal("session was not closed by Stop")
	}

	// Nothing reads the session any more; pushing must not produce callbacks.
	sess.msgs <- Message{Body: []byte(`{"timestamp": 9}`)}
	sess.msgs <- Message{Err: ErrClosed}
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, before, rec.transitions())
	assert.Equal(t, frames, rec.frameCount())
	assert.Equal(t, 0, st.Len())
}

func TestManager_StopDuringReconnectDelay(t *testing.T) {
	d := &fakeDialer{}
	d.push(dialResult{err: errors.New("refused")})

	m := NewManager(d, store.New(), Options{ReconnectDelay: time.Hour})
	rec := &recorder{}
	m.OnConnectionChange(rec.onChange)

	m.Start()
	require.Eventually(t, func() bool {
		_, msg := m.State()
		return msg == "refused"
	}, waitFor, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Stop blocked on the reconnect timer")
	}
	assert.Equal(t, 1, d.count())
}

func TestManager_RestartAfterStop(t *testing.T) {
	first, second := newFakeSession(), newFakeSession()
	d := &fakeDialer{}
	d.push(dialResult{sess: first})

	m, rec := newTestManager(t, d, store.New())
	m.Start()
	waitState(t, rec, StateConnected)
	m.Stop()

	d.push(dialResult{sess: second})
	m.Start()
	require.Eventually(t, func() bool { return len(rec.transitions()) == 4 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []State{StateConnecting, StateConnected, StateConnecting, StateConnected}, rec.states())
	assert.Equal(t, 2, d.count())
}

func TestDisconnectReason(t *testing.T) {
	assert.Equal(t, ReasonDisconnected, disconnectReason(ErrHeartbeatTimeout))
	assert.Equal(t, "boom", disconnectReason(&ProtocolError{Message: "boom"}))
	assert.Equal(t, "boom", disconnectReason(errors.Join(errors.New("wrapped"), &ProtocolError{Message: "boom"})))
}

func TestHandshakeReason(t *testing.T) {
	assert.Equal(t, ReasonTimeout, handshakeReason(context.DeadlineExceeded))
	assert.Equal(t, "refused", handshakeReason(errors.New("refused")))
}
