package sampler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rileyhilliard/statwatch/internal/logger"
	"github.com/rileyhilliard/statwatch/internal/stream"
)

// DefaultInterval matches the backend's publish rate.
const DefaultInterval = time.Second

// Dialer is a stream.Dialer whose sessions publish locally sampled frames in
// the wire JSON shape, once per Interval.
type Dialer struct {
	Source   Source
	Interval time.Duration
	Logger   logger.Logger
}

// NewDialer returns a Dialer sampling the local host.
func NewDialer(interval time.Duration, log logger.Logger) *Dialer {
	return &Dialer{Source: NewHostSource(""), Interval: interval, Logger: log}
}

// Dial always succeeds unless ctx is already done.
func (d *Dialer) Dial(ctx context.Context) (stream.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := d.Logger
	if log == nil {
		log = logger.Noop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		source:   d.Source,
		interval: interval,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

type session struct {
	source   Source
	interval time.Duration
	log      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *session) Subscribe(topic string) (<-chan stream.Message, error) {
	out := make(chan stream.Message)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(out)
		s.publish(out)
	}()
	return out, nil
}

func (s *session) publish(out chan<- stream.Message) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if body, ok := s.frame(); ok {
			select {
			case out <- stream.Message{Body: body}:
			case <-s.ctx.Done():
				return
			}
		}

		select {
		case <-ticker.C:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *session) frame() ([]byte, bool) {
	snap, err := s.source.Sample(s.ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			s.log.Warn("local sample failed: %v", err)
		}
		return nil, false
	}
	body, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn("encode local sample: %v", err)
		return nil, false
	}
	return body, true
}

func (s *session) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}
