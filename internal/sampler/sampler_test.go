package sampler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/statwatch/internal/logger"
	"github.com/rileyhilliard/statwatch/internal/store"
	"github.com/rileyhilliard/statwatch/internal/stream"
	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeSource) Sample(ctx context.Context) (telemetry.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return telemetry.Snapshot{}, errors.New("probe failed")
	}
	return telemetry.Snapshot{
		Timestamp: int64(f.calls),
		CPU:       telemetry.CPU{UsagePercent: 10, LogicalProcessorCount: 8},
	}, nil
}

func TestRate(t *testing.T) {
	tests := []struct {
		name     string
		prev     uint64
		cur      uint64
		elapsed  time.Duration
		expected int64
	}{
		{"steady", 1000, 3000, 2 * time.Second, 1000},
		{"sub-second", 0, 500, 500 * time.Millisecond, 1000},
		{"counter reset", 5000, 100, time.Second, 0},
		{"no elapsed time", 0, 100, 0, 0},
		{"idle", 42, 42, time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rate(tt.prev, tt.cur, tt.elapsed))
		})
	}
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0.0, clampPercent(-3))
	assert.Equal(t, 55.5, clampPercent(55.5))
	assert.Equal(t, 100.0, clampPercent(180))
}

func TestToInt64(t *testing.T) {
	assert.Equal(t, int64(7), toInt64(7))
	assert.Equal(t, int64(1<<63-1), toInt64(1<<64-1))
}

func TestHostSource_Sample(t *testing.T) {
	src := NewHostSource("")
	assert.Equal(t, "/", src.DiskPath)

	first, err := src.Sample(context.Background())
	require.NoError(t, err)
	assert.Positive(t, first.Timestamp)
	assert.Positive(t, first.Memory.TotalBytes)
	assert.LessOrEqual(t, first.Memory.UsagePercent, 100.0)
	assert.Zero(t, first.Disk.ReadBytesPerSecond, "no previous reading")
	assert.Empty(t, first.Devices)

	second, err := src.Sample(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.Timestamp, first.Timestamp)
	assert.GreaterOrEqual(t, second.Network.TotalBytesReceived, first.Network.TotalBytesReceived)
	assert.GreaterOrEqual(t, second.Disk.ReadBytesPerSecond, int64(0))
}

func TestSession_PublishesWireFrames(t *testing.T) {
	d := &Dialer{Source: &fakeSource{}, Interval: 10 * time.Millisecond}

	sess, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	ch, err := sess.Subscribe(stream.DefaultTopic)
	require.NoError(t, err)

	for want := int64(1); want <= 3; want++ {
		select {
		case msg := <-ch:
			require.NoError(t, msg.Err)
			var frame map[string]any
			require.NoError(t, json.Unmarshal(msg.Body, &frame))
			snap := telemetry.Normalize(frame)
			assert.Equal(t, want, snap.Timestamp)
			assert.Equal(t, 8, snap.CPU.LogicalProcessorCount)
		case <-time.After(time.Second):
			t.Fatal("no frame published")
		}
	}
}

func TestSession_CloseEndsChannel(t *testing.T) {
	d := &Dialer{Source: &fakeSource{}, Interval: time.Hour}

	sess, err := d.Dial(context.Background())
	require.NoError(t, err)
	ch, err := sess.Subscribe(stream.DefaultTopic)
	require.NoError(t, err)

	<-ch // first frame is immediate
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	_, ok := <-ch
	assert.False(t, ok)
}

func TestSession_SampleFailureIsLogged(t *testing.T) {
	log := logger.NewBufferLogger()
	src := &fakeSource{fail: true}
	d := &Dialer{Source: src, Interval: 5 * time.Millisecond, Logger: log}

	sess, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer sess.Close()
	_, err = sess.Subscribe(stream.DefaultTopic)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return log.Contains("warn", "probe failed") }, time.Second, 5*time.Millisecond)
}

func TestDial_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Dialer{Source: &fakeSource{}}).Dial(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDialer_DrivesManager(t *testing.T) {
	st := store.New()
	d := &Dialer{Source: &fakeSource{}, Interval: 5 * time.Millisecond}
	m := stream.NewManager(d, st, stream.Options{})
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool { return st.Len() >= 3 }, time.Second, 5*time.Millisecond)
	state, _ := m.State()
	assert.Equal(t, stream.StateConnected, state)
}
