// Package api queries the backend's request/response endpoints: the
// per-process resource list and the backend build info. Failures here are
// scoped to the query and never affect the telemetry stream.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/statwatch/internal/errors"
)

// Limits applied by the backend to the process list.
const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ErrNotAvailable is returned for resources with no per-process breakdown.
var ErrNotAvailable = stderrors.New("per-application data not available")

// Kind selects the resource a process list is sorted by.
type Kind string

const (
	KindCPU     Kind = "cpu"
	KindMemory  Kind = "memory"
	KindDisk    Kind = "disk"
	KindGPU     Kind = "gpu"
	KindNetwork Kind = "network"
)

// Kinds lists every resource kind in display order.
var Kinds = []Kind{KindCPU, KindMemory, KindGPU, KindDisk, KindNetwork}

// ParseKind accepts a kind name case-insensitively. "ram" is an alias for
// memory.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCPU, KindMemory, KindDisk, KindGPU, KindNetwork:
		return k, nil
	case "ram":
		return KindMemory, nil
	default:
		return "", errors.New(errors.ErrQuery,
			fmt.Sprintf("Unknown resource %q", s),
			"Use one of: cpu, memory, gpu, disk, network")
	}
}

// Sortable reports whether the backend can list processes for k.
func (k Kind) Sortable() bool {
	return k == KindCPU || k == KindMemory || k == KindDisk
}

// Label is the human name used in headings.
func (k Kind) Label() string {
	switch k {
	case KindCPU:
		return "CPU Usage"
	case KindMemory:
		return "RAM Usage"
	case KindGPU:
		return "GPU Usage"
	case KindDisk:
		return "Disk"
	case KindNetwork:
		return "Network"
	default:
		return string(k)
	}
}

// UnavailableMessage explains why k has no process list, or "" when it does.
func (k Kind) UnavailableMessage() string {
	switch k {
	case KindGPU:
		return "Per-application GPU usage is not available on this system."
	case KindNetwork:
		return "Per-application network usage is not available on this system."
	default:
		return ""
	}
}

// Process is one row of the process list.
type Process struct {
	PID            int64   `json:"pid"`
	Name           string  `json:"name"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemoryBytes    int64   `json:"memoryBytes"`
	DiskReadBytes  int64   `json:"diskReadBytes"`
	DiskWriteBytes int64   `json:"diskWriteBytes"`
}

// Info is the backend build info.
type Info struct {
	Version string `json:"version"`
	Name    string `json:"name"`
}

// Client talks to the backend HTTP API.
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid API URL %q", baseURL),
			"Set server.api_url (or server.url) to an http:// or https:// address")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{base: u, http: &http.Client{Timeout: timeout}}, nil
}

// ClampLimit applies the backend's limit rules. Non-positive means default.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// Processes fetches the top processes by kind. GPU and network return
// ErrNotAvailable without making a request.
func (c *Client) Processes(ctx context.Context, kind Kind, limit int) ([]Process, error) {
	if !kind.Sortable() {
		return nil, fmt.Errorf("%s: %w", kind, ErrNotAvailable)
	}

	q := url.Values{}
	q.Set("sort", string(kind))
	q.Set("limit", strconv.Itoa(ClampLimit(limit)))

	var procs []Process
	if err := c.getJSON(ctx, "/api/processes", q, &procs); err != nil {
		return nil, err
	}
	if procs == nil {
		procs = []Process{}
	}
	return procs, nil
}

// Info fetches the backend version. On any failure it returns an empty Info
// alongside the error.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info
	if err := c.getJSON(ctx, "/api/info", nil, &info); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrQuery,
			fmt.Sprintf("Can't reach %s", u.Host),
			"Check that the backend is running and server.api_url is correct")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.WrapWithCode(err, errors.ErrQuery,
			fmt.Sprintf("Unexpected response from %s", path),
			"")
	}
	return nil
}

func statusError(path string, resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound && path == "/api/processes" {
		return errors.New(errors.ErrQuery,
			"Process list not available",
			"Restart the backend and try again")
	}
	text := http.StatusText(resp.StatusCode)
	if text == "" {
		text = "Request failed"
	}
	return errors.New(errors.ErrQuery,
		fmt.Sprintf("%s (HTTP %d)", text, resp.StatusCode),
		"")
}
