package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/statwatch/internal/api"
	"github.com/rileyhilliard/statwatch/internal/errors"
)

const processesBody = `[
	{"pid": 101, "name": "postgres", "cpuPercent": 42.5, "memoryBytes": 1073741824, "diskReadBytes": 2048, "diskWriteBytes": 1536},
	{"pid": 202, "name": "nginx", "cpuPercent": 3.25, "memoryBytes": 52428800, "diskReadBytes": 0, "diskWriteBytes": 0}
]`

func newProcessServer(t *testing.T, status int, body string) (*api.Client, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var hits atomic.Int32
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		query.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	return client, &hits, &query
}

func TestListProcesses(t *testing.T) {
	tests := []struct {
		kind    api.Kind
		columns []string
		values  []string
	}{
		{api.KindCPU, []string{"PID", "NAME", "CPU"}, []string{"42.5%", "3.2%"}},
		{api.KindMemory, []string{"MEMORY"}, []string{"1.0 GiB", "50 MiB"}},
		{api.KindDisk, []string{"READ", "WRITE"}, []string{"2.0 KiB", "1.5 KiB"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			client, _, query := newProcessServer(t, http.StatusOK, processesBody)
			var out bytes.Buffer

			require.NoError(t, listProcesses(context.Background(), &out, client, tt.kind, 10))

			assert.Equal(t, "limit=10&sort="+string(tt.kind), query.Load())
			got := out.String()
			assert.Contains(t, got, tt.kind.Label())
			assert.Contains(t, got, "postgres")
			assert.Contains(t, got, "nginx")
			for _, c := range append(tt.columns, tt.values...) {
				assert.Contains(t, got, c)
			}
			assert.Less(t, strings.Index(got, "postgres"), strings.Index(got, "nginx"), "backend order is kept")
		})
	}
}

func TestListProcesses_NotAvailable(t *testing.T) {
	for _, kind := range []api.Kind{api.KindGPU, api.KindNetwork} {
		t.Run(string(kind), func(t *testing.T) {
			client, hits, _ := newProcessServer(t, http.StatusOK, processesBody)
			var out bytes.Buffer

			require.NoError(t, listProcesses(context.Background(), &out, client, kind, 25))
			assert.Contains(t, out.String(), kind.UnavailableMessage())
			assert.Zero(t, hits.Load(), "no request for unsupported kinds")
		})
	}
}

func TestListProcesses_Empty(t *testing.T) {
	client, _, _ := newProcessServer(t, http.StatusOK, `[]`)
	var out bytes.Buffer

	require.NoError(t, listProcesses(context.Background(), &out, client, api.KindCPU, 25))
	assert.Contains(t, out.String(), "No processes reported.")
}

func TestListProcesses_NotFound(t *testing.T) {
	client, _, _ := newProcessServer(t, http.StatusNotFound, `{}`)

	err := listProcesses(context.Background(), &bytes.Buffer{}, client, api.KindMemory, 25)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrQuery))
	assert.Contains(t, err.Error(), "Process list not available")
}

func TestProcessesCommand_UnknownKind(t *testing.T) {
	err := processesCommand(context.Background(), &bytes.Buffer{}, "swap", 25)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrQuery))
	assert.Contains(t, err.Error(), "Unknown resource")
}

func TestProcessRows(t *testing.T) {
	procs := []api.Process{{PID: 7, Name: "init", CPUPercent: 1, MemoryBytes: -1}}

	cols, rows := processRows(api.KindMemory, procs)
	require.Len(t, cols, 3)
	assert.Equal(t, [][]string{{"7", "init", "0 B"}}, rows)

	cols, rows = processRows(api.KindDisk, procs)
	assert.Len(t, cols, 4)
	assert.Len(t, rows[0], 4)
}
