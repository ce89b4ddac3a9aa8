package playback

import (
	"bytes"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/dj-oyu/vio/internal/config"
	"github.com/dj-oyu/vio/internal/logger"
)

var errDisk = errors.New("disk on fire")

// fakeClock drives the reader without real sleeping
type fakeClock struct {
	t     time.Time
	slept time.Duration
	naps  int
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.slept += d
	c.naps++
	c.t = c.t.Add(d)
}

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func (c *fakeClock) install(r *Reader) {
	r.now = c.now
	r.sleep = c.sleep
}

// stepSource yields bytes and advances a fake clock by step per call.
// remaining < 0 means unlimited.
type stepSource struct {
	clock     *fakeClock
	step      time.Duration
	remaining int64
	calls     []int
	failAt    int // Return errDisk on this call (1-based), 0 never
}

func (s *stepSource) Next(max int) (int, error) {
	s.calls = append(s.calls, max)
	if s.clock != nil {
		s.clock.advance(s.step)
	}
	if s.failAt > 0 && len(s.calls) == s.failAt {
		return 0, errDisk
	}
	if s.remaining == 0 {
		return 0, io.EOF
	}
	n := int64(max)
	if s.remaining > 0 && n > s.remaining {
		n = s.remaining
	}
	if s.remaining > 0 {
		s.remaining -= n
	}
	return int(n), nil
}

// sleepySource takes delay of real time for every chunk
type sleepySource struct {
	delay time.Duration
}

func (s sleepySource) Next(max int) (int, error) {
	time.Sleep(s.delay)
	return max, nil
}

// zeroReader is an infinite io.Reader counting its reads
type zeroReader struct {
	reads atomic.Int64
}

func (z *zeroReader) Read(p []byte) (int, error) {
	z.reads.Add(1)
	return len(p), nil
}

// failingReader returns good data for the first reads, then errDisk
type failingReader struct {
	good int
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.good == 0 {
		return 0, errDisk
	}
	f.good--
	return len(p), nil
}

// emptyReader returns zero bytes and no error
type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, nil }

func quietLog() *logger.Module {
	return logger.New(logger.SILENT, &bytes.Buffer{}, false).Module("test")
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.FrameRate = 24
	cfg.FrameSize = 1024
	cfg.ChunkSize = 1024
	cfg.TimeLimit = time.Second
	cfg.PrefetchSize = 0
	return cfg
}
