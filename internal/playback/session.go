package playback

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/dj-oyu/vio/internal/config"
	"github.com/dj-oyu/vio/internal/logger"
	"github.com/dj-oyu/vio/internal/schedule"
	"github.com/dj-oyu/vio/pkg/types"
)

// FrameObserver is notified after every frame (metrics)
type FrameObserver interface {
	SessionStarted()
	SessionStopped()
	ObserveFrame(slot types.FrameSlot, res types.FrameResult)
}

type nopObserver struct{}

func (nopObserver) SessionStarted()                                 {}
func (nopObserver) SessionStopped()                                 {}
func (nopObserver) ObserveFrame(types.FrameSlot, types.FrameResult) {}

// Session plays one work file at the configured frame rate. Only the
// session goroutine writes its counters; Status may be called from any
// goroutine.
type Session struct {
	id       int
	path     string
	cfg      config.Config
	schedule schedule.Schedule
	reader   *Reader
	observer FrameObserver
	log      *logger.Module

	total atomic.Uint64
	fails atomic.Uint64
	bytes atomic.Uint64
	state atomic.Int32
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithObserver sets the frame observer
func WithObserver(o FrameObserver) SessionOption {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSessionLogger sets the logger handle
func WithSessionLogger(m *logger.Module) SessionOption {
	return func(s *Session) {
		s.log = m
	}
}

// WithPath overrides the work file path derived from the configuration
func WithPath(path string) SessionOption {
	return func(s *Session) {
		s.path = path
	}
}

// NewSession creates session id bound to its work file. cfg is copied.
func NewSession(id int, cfg config.Config, opts ...SessionOption) *Session {
	s := &Session{
		id:       id,
		path:     cfg.WorkfileName(id),
		cfg:      cfg,
		schedule: schedule.New(cfg.FrameRate, cfg.FrameSize),
		reader:   NewReader(cfg.ChunkSize),
		observer: nopObserver{},
		log:      logger.Named(fmt.Sprintf("Session-%d", id)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session index
func (s *Session) ID() int {
	return s.id
}

// Path returns the work file path
func (s *Session) Path() string {
	return s.path
}

// Status returns a live snapshot of the session counters
func (s *Session) Status() types.SessionStatus {
	return types.SessionStatus{
		Session: s.id,
		Path:    s.path,
		State:   types.SessionState(s.state.Load()),
		Total:   s.total.Load(),
		Fails:   s.fails.Load(),
		Bytes:   s.bytes.Load(),
	}
}

func (s *Session) setState(st types.SessionState) {
	s.state.Store(int32(st))
}

// Run opens the work file and plays it until end of stream, the time limit
// or ctx cancellation
func (s *Session) Run(ctx context.Context) (types.SessionReport, error) {
	file, err := os.Open(s.path)
	if err != nil {
		s.setState(types.StateFailed)
		return types.SessionReport{}, fmt.Errorf("session %d: failed to open work file: %w", s.id, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		s.setState(types.StateFailed)
		return types.SessionReport{}, fmt.Errorf("session %d: failed to stat work file: %w", s.id, err)
	}

	var src Source
	if s.cfg.Prefetch() {
		s.log.Debug("Prefetching %s in %d byte blocks (depth %d)", s.path, s.cfg.PrefetchSize, s.cfg.PrefetchDepth)
		p := StartPrefetch(file, s.cfg.PrefetchSize, s.cfg.PrefetchDepth)
		defer p.Close()
		src = p
	} else {
		s.log.Debug("Reading %s directly in %d byte chunks", s.path, s.cfg.ChunkSize)
		src = NewFileSource(file, s.cfg.ChunkSize, info.Size())
	}

	return s.Play(ctx, src)
}

// Play runs the frame loop against src
func (s *Session) Play(ctx context.Context, src Source) (types.SessionReport, error) {
	now := s.reader.now

	s.setState(types.StateRunning)
	s.observer.SessionStarted()
	defer s.observer.SessionStopped()

	start := now()
	end := start.Add(s.cfg.TimeLimit)
	secondStart := start
	index := 0

	s.log.Info("Playing %s at %v fps, %d bytes per frame for %s", s.path, s.cfg.FrameRate, s.cfg.FrameSize, s.cfg.TimeLimit)

	var reason types.SessionState
	for {
		slot := s.schedule.Slot(index, secondStart, now())

		res, err := s.reader.Play(src, slot)
		s.bytes.Add(uint64(res.Bytes))
		if err != nil {
			s.setState(types.StateFailed)
			s.log.Error("Frame %d: %v", s.total.Load(), err)
			return types.SessionReport{}, fmt.Errorf("session %d: %w", s.id, err)
		}

		s.total.Add(1)
		if res.Failed() {
			s.fails.Add(1)
			s.log.Debug("Frame %d missed: %d of %d bytes in %s (budget %s)",
				slot.Index, res.Bytes, slot.Quota, res.Elapsed, slot.Budget)
		}
		s.observer.ObserveFrame(slot, res)

		if res.Done() {
			reason = types.StateEndOfStream
			break
		}
		if !now().Before(end) {
			reason = types.StateTimeLimitReached
			break
		}
		if ctx.Err() != nil {
			reason = types.StateCancelled
			break
		}

		index = s.schedule.Next(index)
		if index == 0 {
			secondStart = secondStart.Add(time.Second)
		}
	}

	s.setState(reason)
	report := types.SessionReport{
		Session: s.id,
		Path:    s.path,
		Total:   s.total.Load(),
		Fails:   s.fails.Load(),
		Reason:  reason,
		Elapsed: now().Sub(start),
	}
	s.log.Info("Stopped (%s) after %s", reason, report.Elapsed.Round(time.Millisecond))
	return report, nil
}

// MarkReported records that the report line has been written
func (s *Session) MarkReported() {
	s.setState(types.StateReported)
}
