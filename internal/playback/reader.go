package playback

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dj-oyu/vio/pkg/types"
)

// Reader delivers a frame's quota under its time budget.
//
// The clock is checked after every chunk, so a slow source is detected
// within one chunk read of the deadline. A missed frame is abandoned
// immediately: the bytes it already consumed are discarded and the next
// frame starts with a fresh quota.
type Reader struct {
	chunk int
	now   func() time.Time
	sleep func(time.Duration)
}

// NewReader creates a reader consuming at most chunk bytes per step
func NewReader(chunk int) *Reader {
	return &Reader{
		chunk: chunk,
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Play runs one frame against src. The frame starts when Play is called.
// The error is non-nil only for I/O failures, which end the session.
func (r *Reader) Play(src Source, slot types.FrameSlot) (types.FrameResult, error) {
	start := r.now()
	res := types.FrameResult{Outcome: types.FramePlayed}

	// Earlier frames ate the whole second
	if slot.Budget <= 0 {
		res.Outcome = types.FrameMissed
		return res, nil
	}

	for res.Bytes < slot.Quota {
		want := slot.Quota - res.Bytes
		if want > r.chunk {
			want = r.chunk
		}

		n, err := src.Next(want)
		res.Bytes += n
		res.Elapsed = r.now().Sub(start)

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return res, fmt.Errorf("read failed after %d of %d bytes: %w", res.Bytes, slot.Quota, err)
			}
			res.EOF = true
			if n == 0 || res.Bytes < slot.Quota {
				res.Outcome = types.FrameEndOfStream
				return res, nil
			}
		}

		if res.Elapsed > slot.Budget {
			res.Outcome = types.FrameMissed
			return res, nil
		}
	}

	res.Elapsed = r.now().Sub(start)
	if res.EOF {
		return res, nil
	}
	if slack := slot.Budget - res.Elapsed; slack > 0 {
		r.sleep(slack)
	}
	return res, nil
}
