package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/rileyhilliard/statwatch/internal/api"
	"github.com/rileyhilliard/statwatch/internal/config"
	"github.com/rileyhilliard/statwatch/internal/errors"
	"github.com/rileyhilliard/statwatch/internal/logger"
	"github.com/rileyhilliard/statwatch/internal/sampler"
	"github.com/rileyhilliard/statwatch/internal/store"
	"github.com/rileyhilliard/statwatch/internal/stream"
)

// infoTimeout bounds the version lookup done before the dashboard starts.
const infoTimeout = 2 * time.Second

// appContext carries the resolved config and logger through a command.
// It must be closed to release the log file.
type appContext struct {
	cfg    *config.Config
	path   string
	log    logger.Logger
	closer io.Closer

	// localDialer replaces the host sampler for --local when set.
	localDialer stream.Dialer
}

// loadApp resolves config (file, env, then global flags), validates it and
// configures logging.
func loadApp() (*appContext, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if serverFlag != "" {
		cfg.Server.URL = strings.TrimRight(strings.TrimSpace(serverFlag), "/")
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	closer := logger.Configure(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	log := logger.NewEnvLogger("[statwatch]")
	logger.SetDefault(log)

	if path != "" {
		log.Debug("loaded config from %s", path)
	}
	return &appContext{cfg: cfg, path: path, log: log, closer: closer}, nil
}

// Close releases the log file, if any.
func (a *appContext) Close() {
	if a.closer != nil {
		a.closer.Close()
	}
}

// dialer returns the transport for the stream and a label naming where the
// data comes from.
func (a *appContext) dialer(local bool) (stream.Dialer, string, error) {
	if local {
		if a.localDialer != nil {
			return a.localDialer, "local host", nil
		}
		return sampler.NewDialer(sampler.DefaultInterval, a.log), "local host", nil
	}

	u, err := stream.EndpointURL(a.cfg.Server.URL, a.cfg.Stream.Endpoint)
	if err != nil {
		return nil, "", errors.WrapWithCode(err, errors.ErrConfig,
			"Can't build the stream URL",
			"Check 'server.url' and 'stream.endpoint' in your .statwatch.yaml.")
	}
	return &stream.StompDialer{
		URL:              u,
		Heartbeat:        a.cfg.Stream.Heartbeat,
		HandshakeTimeout: a.cfg.Stream.HandshakeTimeout,
		Logger:           a.log,
	}, a.cfg.Server.URL, nil
}

// manager wires a connection manager writing into st.
func (a *appContext) manager(d stream.Dialer, st *store.Store) *stream.Manager {
	return stream.NewManager(d, st, stream.Options{
		Topic:            a.cfg.Stream.Topic,
		ReconnectDelay:   a.cfg.Stream.ReconnectDelay,
		HandshakeTimeout: a.cfg.Stream.HandshakeTimeout,
		Logger:           a.log,
	})
}

// client returns an API client for the process and info endpoints.
func (a *appContext) client() (*api.Client, error) {
	return api.NewClient(a.cfg.APIBase(), 0)
}

// backendVersion looks up the backend version. Any failure yields "".
func (a *appContext) backendVersion(ctx context.Context) string {
	c, err := a.client()
	if err != nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	info, err := c.Info(ctx)
	if err != nil {
		a.log.Debug("backend info unavailable: %v", err)
		return ""
	}
	return info.Version
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
