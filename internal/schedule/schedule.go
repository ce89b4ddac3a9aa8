// Package schedule computes the per-frame byte quota and time budget for
// playback at a possibly non-integral frame rate.
//
// A cycle covers one second and has ceil(rate) frames. Every frame gets the
// full frame size except the last frame of a non-integral cycle, which gets
// the fractional remainder. Every frame gets the nominal 1/rate slice except
// the last one, which gets whatever is left of the real second, so rounding
// error is absorbed once per second instead of accumulating.
package schedule

import (
	"math"
	"time"

	"github.com/dj-oyu/vio/pkg/types"
)

// Schedule is immutable and safe to share between sessions.
// The rate must be positive; callers validate it.
type Schedule struct {
	rate      float64
	frameSize int
	cycle     int
	nominal   time.Duration
}

// New returns a schedule for the given rate (frames per second) and frame size in bytes
func New(rate float64, frameSize int) Schedule {
	return Schedule{
		rate:      rate,
		frameSize: frameSize,
		cycle:     int(math.Ceil(rate)),
		nominal:   time.Duration(float64(time.Second) / rate),
	}
}

// CycleLen returns the number of frames in one second of playback
func (s Schedule) CycleLen() int {
	return s.cycle
}

// Nominal returns the budget of every frame except the last of a cycle
func (s Schedule) Nominal() time.Duration {
	return s.nominal
}

// Quota returns the bytes to deliver for frame i of the cycle
func (s Schedule) Quota(i int) int {
	diff := s.rate - float64(i)
	if diff >= 1.0 {
		return s.frameSize
	}
	return int(math.Floor(float64(s.frameSize) * diff))
}

// Budget returns the time allowed for frame i. The last frame of the cycle
// gets the remainder of the second that began at secondStart, which is
// zero or negative when earlier frames overran.
func (s Schedule) Budget(i int, secondStart, now time.Time) time.Duration {
	if i+1 < s.cycle {
		return s.nominal
	}
	return time.Second - now.Sub(secondStart)
}

// Next returns the index following i. A result of 0 means one second of
// playback has completed.
func (s Schedule) Next(i int) int {
	return (i + 1) % s.cycle
}

// Slot bundles quota and budget for frame i
func (s Schedule) Slot(i int, secondStart, now time.Time) types.FrameSlot {
	return types.FrameSlot{
		Index:  i,
		Quota:  s.Quota(i),
		Budget: s.Budget(i, secondStart, now),
	}
}
