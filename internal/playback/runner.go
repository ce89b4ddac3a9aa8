package playback

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dj-oyu/vio/internal/config"
	"github.com/dj-oyu/vio/internal/logger"
	"github.com/dj-oyu/vio/internal/metrics"
	"github.com/dj-oyu/vio/pkg/types"
)

// Runner fans out one session per configured thread and joins them.
// Sessions share nothing but the configuration value; a failing session
// does not stop the others, and results are never merged.
type Runner struct {
	runID    string
	sessions []*Session
	out      *lineWriter
	log      *logger.Module
}

// RunnerOption configures a Runner
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	runID    string
	metrics  *metrics.Metrics
	out      io.Writer
	sessions []SessionOption
}

// WithRunID sets the run identifier (a random UUID by default)
func WithRunID(id string) RunnerOption {
	return func(o *runnerOptions) {
		o.runID = id
	}
}

// WithMetrics records every session on m
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(o *runnerOptions) {
		o.metrics = m
	}
}

// WithOutput sets where report lines are written
func WithOutput(w io.Writer) RunnerOption {
	return func(o *runnerOptions) {
		o.out = w
	}
}

// WithSessionOptions applies opts to every session
func WithSessionOptions(opts ...SessionOption) RunnerOption {
	return func(o *runnerOptions) {
		o.sessions = append(o.sessions, opts...)
	}
}

// NewRunner creates cfg.Threads sessions, each on its own work file
func NewRunner(cfg config.Config, opts ...RunnerOption) *Runner {
	o := runnerOptions{out: io.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	r := &Runner{
		runID: o.runID,
		out:   &lineWriter{w: o.out},
		log:   logger.Named("Runner"),
	}

	for i := 0; i < cfg.Threads; i++ {
		sessionOpts := []SessionOption{}
		if o.metrics != nil {
			sessionOpts = append(sessionOpts, WithObserver(o.metrics.Session(i)))
		}
		sessionOpts = append(sessionOpts, o.sessions...)
		r.sessions = append(r.sessions, NewSession(i, cfg, sessionOpts...))
	}
	return r
}

// RunID returns the run identifier
func (r *Runner) RunID() string {
	return r.runID
}

// Sessions returns the sessions in thread order
func (r *Runner) Sessions() []*Session {
	return r.sessions
}

// Snapshot returns the live status of every session
func (r *Runner) Snapshot() []types.SessionStatus {
	out := make([]types.SessionStatus, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Status()
	}
	return out
}

// Run plays all sessions concurrently and blocks until every one of them
// has terminated. Each session writes its report line as soon as it stops.
// The returned slice is indexed by session; sessions that failed have a
// zero report. The error is the first session failure, if any.
func (r *Runner) Run(ctx context.Context) ([]types.SessionReport, error) {
	reports := make([]types.SessionReport, len(r.sessions))

	r.log.Info("Run %s: starting %d sessions", r.runID, len(r.sessions))

	// No shared context: one session failing must not cancel the rest
	var g errgroup.Group
	for i, s := range r.sessions {
		g.Go(func() error {
			report, err := s.Run(ctx)
			if err != nil {
				r.log.Error("%v", err)
				return err
			}
			reports[i] = report
			r.out.WriteLine(report.String())
			s.MarkReported()
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return reports, fmt.Errorf("run %s: %w", r.runID, err)
	}
	return reports, nil
}

// lineWriter keeps concurrent report lines from interleaving
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) WriteLine(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, line+"\n")
}
