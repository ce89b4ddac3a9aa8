package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dj-oyu/vio/pkg/types"
)

// Metrics holds the playback collectors of one run
type Metrics struct {
	frames   *prometheus.CounterVec
	failures *prometheus.CounterVec
	eos      *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	readTime *prometheus.HistogramVec
	active   prometheus.Gauge

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a Metrics instance on a private registry. Every series
// carries the run id as a constant label so results from several hosts can
// be told apart after scraping.
func New(runID string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.frames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vio_frames_total",
		Help: "Total frames attempted",
	}, []string{"session"})

	m.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vio_frame_failures_total",
		Help: "Frames whose deadline was missed",
	}, []string{"session"})

	m.eos = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vio_end_of_stream_total",
		Help: "Sessions that ran out of work file data",
	}, []string{"session"})

	m.bytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vio_bytes_read_total",
		Help: "Bytes consumed by the pacing loop",
	}, []string{"session"})

	m.readTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vio_frame_read_seconds",
		Help:    "Time spent reading one frame, excluding the pacing sleep",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"session"})

	m.active = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vio_sessions_active",
		Help: "Playback sessions currently running",
	})

	reg := prometheus.WrapRegistererWith(prometheus.Labels{"run_id": runID}, m.registry)
	reg.MustRegister(m.frames, m.failures, m.eos, m.bytes, m.readTime, m.active)

	return m
}

// Session returns the collectors bound to one session
func (m *Metrics) Session(id int) *SessionMetrics {
	label := strconv.Itoa(id)
	return &SessionMetrics{
		frames:   m.frames.WithLabelValues(label),
		failures: m.failures.WithLabelValues(label),
		eos:      m.eos.WithLabelValues(label),
		bytes:    m.bytes.WithLabelValues(label),
		readTime: m.readTime.WithLabelValues(label),
		active:   m.active,
	}
}

// Registry exposes the underlying registry (used by tests)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionMetrics records the frames of one session. It satisfies the
// playback frame observer.
type SessionMetrics struct {
	frames   prometheus.Counter
	failures prometheus.Counter
	eos      prometheus.Counter
	bytes    prometheus.Counter
	readTime prometheus.Observer
	active   prometheus.Gauge
}

// SessionStarted marks the session as running
func (s *SessionMetrics) SessionStarted() {
	s.active.Inc()
}

// SessionStopped marks the session as finished
func (s *SessionMetrics) SessionStopped() {
	s.active.Dec()
}

// ObserveFrame records one frame result
func (s *SessionMetrics) ObserveFrame(slot types.FrameSlot, res types.FrameResult) {
	s.frames.Inc()
	if res.Failed() {
		s.failures.Inc()
	}
	if res.Done() {
		s.eos.Inc()
	}
	s.bytes.Add(float64(res.Bytes))
	s.readTime.Observe(res.Elapsed.Seconds())
}
