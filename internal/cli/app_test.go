package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/statwatch/internal/config"
	"github.com/rileyhilliard/statwatch/internal/errors"
	"github.com/rileyhilliard/statwatch/internal/logger"
	"github.com/rileyhilliard/statwatch/internal/sampler"
	"github.com/rileyhilliard/statwatch/internal/stream"
	"github.com/rileyhilliard/statwatch/internal/telemetry"
)

// fakeSource hands out snapshots with increasing timestamps and the given
// CPU usage. It fails every sample when fail is set.
type fakeSource struct {
	mu    sync.Mutex
	calls int
	cpu   float64
	fail  bool
}

func (f *fakeSource) Sample(ctx context.Context) (telemetry.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return telemetry.Snapshot{}, assert.AnError
	}
	return telemetry.Snapshot{
		Timestamp: 1700000000000 + int64(f.calls)*1000,
		CPU:       telemetry.CPU{UsagePercent: f.cpu, LogicalProcessorCount: 4},
		Memory:    telemetry.Memory{UsagePercent: 40, TotalBytes: 8 << 30, UsedBytes: 3 << 30},
	}, nil
}

// syncWriter is a bytes.Buffer safe for the manager goroutine to write
// while the test reads.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// testApp returns an appContext on defaults whose --local transport samples
// src every millisecond.
func testApp(t *testing.T, src sampler.Source) (*appContext, *logger.BufferLogger) {
	t.Helper()
	log := logger.NewBufferLogger()
	a := &appContext{cfg: config.DefaultConfig(), log: log}
	if src != nil {
		a.localDialer = &sampler.Dialer{Source: src, Interval: time.Millisecond, Logger: log}
	}
	return a, log
}

// resetGlobals restores the root flag variables after a test changes them.
func resetGlobals(t *testing.T) {
	t.Helper()
	prevCfg, prevServer, prevVerbose := cfgFile, serverFlag, verbose
	prevLog := logger.Default()
	t.Cleanup(func() {
		cfgFile, serverFlag, verbose = prevCfg, prevServer, prevVerbose
		logger.SetDefault(prevLog)
		logger.Configure(logger.Options{Level: "info"})
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadApp_FlagsOverrideFile(t *testing.T) {
	resetGlobals(t)
	cfgFile = writeConfig(t, "server:\n  url: http://from-file:8080\n")
	serverFlag = " https://from-flag:9443/ "
	verbose = true

	a, err := loadApp()
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "https://from-flag:9443", a.cfg.Server.URL)
	assert.Equal(t, "debug", a.cfg.Log.Level)
	assert.Equal(t, cfgFile, a.path)
	assert.Same(t, a.log, logger.Default())
}

func TestLoadApp_InvalidConfig(t *testing.T) {
	resetGlobals(t)
	cfgFile = writeConfig(t, "server:\n  url: ftp://nope\n")

	_, err := loadApp()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoadApp_MissingExplicitFile(t *testing.T) {
	resetGlobals(t)
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := loadApp()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Specified config file not found")
}

func TestAppContext_Dialer(t *testing.T) {
	a, _ := testApp(t, nil)
	a.cfg.Server.URL = "https://stats.example.com/base"

	d, source, err := a.dialer(false)
	require.NoError(t, err)
	assert.Equal(t, "https://stats.example.com/base", source)
	sd, ok := d.(*stream.StompDialer)
	require.True(t, ok)
	assert.Equal(t, "wss://stats.example.com/base/ws/websocket", sd.URL)
	assert.Equal(t, 4*time.Second, sd.Heartbeat)
	assert.Equal(t, 5*time.Second, sd.HandshakeTimeout)

	d, source, err = a.dialer(true)
	require.NoError(t, err)
	assert.Equal(t, "local host", source)
	assert.IsType(t, &sampler.Dialer{}, d)
}

func TestAppContext_DialerBadURL(t *testing.T) {
	a, _ := testApp(t, nil)
	a.cfg.Server.URL = "ftp://stats"

	_, _, err := a.dialer(false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestAppContext_BackendVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/info" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"2.4.1","name":"stats-server"}`))
	}))
	defer srv.Close()

	a, _ := testApp(t, nil)
	a.cfg.Server.URL = srv.URL
	assert.Equal(t, "2.4.1", a.backendVersion(context.Background()))
}

func TestAppContext_BackendVersionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a, log := testApp(t, nil)
	a.cfg.Server.URL = srv.URL
	assert.Empty(t, a.backendVersion(context.Background()))
	assert.True(t, log.Contains("debug", "backend info unavailable"))
}
