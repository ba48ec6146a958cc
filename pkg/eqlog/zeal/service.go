package zeal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultPollInterval bounds how long a cancelled Listen may keep waiting
// on a pipe with no data.
const DefaultPollInterval = 100 * time.Millisecond

// Option configures a Service.
type Option func(*serviceConfig)

type serviceConfig struct {
	bufferSize   int
	pollInterval time.Duration
	logger       *slog.Logger
	onError      func(error)
}

// WithBufferSize sets the largest accepted message. Default: DefaultBufferSize.
func WithBufferSize(n int) Option {
	return func(c *serviceConfig) {
		c.bufferSize = n
	}
}

// WithPollInterval sets the idle wait between reads that return no data.
// Default: 100ms.
func WithPollInterval(d time.Duration) Option {
	return func(c *serviceConfig) {
		c.pollInterval = d
	}
}

// WithLogger sets the logger for skipped messages.
// If nil (default), logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = l
	}
}

// WithErrorHandler sets a callback for the error that ends a Listen session.
func WithErrorHandler(fn func(error)) Option {
	return func(c *serviceConfig) {
		c.onError = fn
	}
}

// Service decodes pipe messages into the current raid roster and character
// telemetry. Feed and Listen must not run concurrently with each other;
// the accessors are safe from any goroutine.
type Service struct {
	cfg   serviceConfig
	demux *Demuxer

	mu        sync.RWMutex
	roster    *Roster
	hasRoster bool
	telemetry Telemetry
	hasTelem  bool
	subs      map[chan []RaidCharacter]struct{}
}

// NewService creates a Service with an empty roster.
func NewService(opts ...Option) *Service {
	cfg := serviceConfig{
		bufferSize:   DefaultBufferSize,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.pollInterval <= 0 {
		cfg.pollInterval = DefaultPollInterval
	}
	return &Service{
		cfg:    cfg,
		demux:  NewDemuxer(cfg.bufferSize),
		roster: NewRoster(),
		subs:   make(map[chan []RaidCharacter]struct{}),
	}
}

// Feed processes one chunk of pipe data. Malformed and oversized messages
// are logged and skipped. A message without a locatable data payload is
// returned as an error wrapping ErrMissingData after the rest of the chunk
// has been processed.
func (s *Service) Feed(chunk []byte) error {
	msgs, err := s.demux.Feed(chunk)
	if err != nil {
		s.cfg.logger.Warn("zeal message dropped", "error", err)
	}

	var fatal error
	for _, raw := range msgs {
		if err := s.apply(raw); err != nil {
			if errors.Is(err, ErrMissingData) {
				fatal = errors.Join(fatal, err)
				continue
			}
			s.cfg.logger.Debug("zeal message skipped", "error", err)
		}
	}
	return fatal
}

func (s *Service) apply(raw string) error {
	m, err := Decode(raw)
	if err != nil {
		return err
	}

	switch m.Type {
	case TypeRaid:
		members, err := m.Roster()
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.roster.Merge(members)
		s.hasRoster = true
		snap := s.roster.Members()
		s.mu.Unlock()
		s.publish(snap)
	case TypeTelemetry:
		t, err := m.Telemetry()
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.telemetry = t
		s.hasTelem = true
		s.mu.Unlock()
	}
	return nil
}

func (s *Service) publish(snap []RaidCharacter) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			s.cfg.logger.Debug("roster subscriber slow, snapshot dropped")
		}
	}
}

// Subscribe returns a channel receiving a roster snapshot after every raid
// message, and a function that unsubscribes and closes the channel.
// Snapshots are dropped for a subscriber whose buffer is full.
func (s *Service) Subscribe(buffer int) (<-chan []RaidCharacter, func()) {
	ch := make(chan []RaidCharacter, buffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Roster returns a copy of the current raid roster.
func (s *Service) Roster() []RaidCharacter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roster.Members()
}

// InRaid reports whether name is on the current roster.
func (s *Service) InRaid(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roster.Get(name)
	return ok
}

// Lookup returns the roster record for name, compared case-insensitively
// when no exact match exists. known is false until the first raid message
// has been received.
func (s *Service) Lookup(name string) (rc RaidCharacter, inRaid, known bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasRoster {
		return RaidCharacter{}, false, false
	}
	if p, ok := s.roster.Find(name); ok {
		return *p, true, true
	}
	return RaidCharacter{}, false, true
}

// Telemetry returns the latest character telemetry.
func (s *Service) Telemetry() (Telemetry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.telemetry, s.hasTelem
}

type deadliner interface {
	SetReadDeadline(time.Time) error
}

// Listen reads r until ctx is cancelled, the writer disconnects or a
// message lacks its data payload. Readers with SetReadDeadline (such as
// an *os.File pipe) are polled so cancellation is observed within one poll
// interval; other readers are closed on cancellation if they implement
// io.Closer.
//
// Listen returns nil on cancellation. Any other terminal error is passed
// to the error handler and returned.
func (s *Service) Listen(ctx context.Context, r io.Reader) error {
	err := s.listen(ctx, r)
	if err != nil && s.cfg.onError != nil {
		s.cfg.onError(err)
	}
	return err
}

func (s *Service) listen(ctx context.Context, r io.Reader) error {
	dl, canDeadline := r.(deadliner)
	if canDeadline {
		if err := dl.SetReadDeadline(time.Time{}); err != nil {
			canDeadline = false
		}
	}
	if c, ok := r.(io.Closer); ok && !canDeadline {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if canDeadline {
			_ = dl.SetReadDeadline(time.Now().Add(s.cfg.pollInterval))
		}

		n, err := r.Read(buf)
		if n > 0 {
			if ferr := s.Feed(buf[:n]); ferr != nil {
				return ferr
			}
		}

		switch {
		case err == nil:
			if n == 0 {
				if !s.sleep(ctx) {
					return nil
				}
			}
		case errors.Is(err, os.ErrDeadlineExceeded):
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: %w", ErrListenerClosed, io.EOF)
		default:
			return fmt.Errorf("%w: %w", ErrListenerClosed, err)
		}
	}
}

func (s *Service) sleep(ctx context.Context) bool {
	t := time.NewTimer(s.cfg.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
