package types

import "time"

// FrameSlot is one scheduled unit of simulated playback
type FrameSlot struct {
	Index  int           // Position within the current one-second cycle
	Quota  int           // Bytes that must be delivered for this frame
	Budget time.Duration // Time allowed to deliver them (may be <= 0)
}

// FrameOutcome classifies how a frame ended
type FrameOutcome int

const (
	FramePlayed      FrameOutcome = iota // Quota met within budget
	FrameMissed                          // Budget exceeded before quota was met
	FrameEndOfStream                     // Source ran dry before quota was met
)

var outcomeNames = map[FrameOutcome]string{
	FramePlayed:      "played",
	FrameMissed:      "missed",
	FrameEndOfStream: "end_of_stream",
}

// String returns the string representation of a frame outcome
func (o FrameOutcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// FrameResult is what the deadline reader reports for one frame
type FrameResult struct {
	Outcome FrameOutcome
	Bytes   int           // Bytes consumed from the source for this frame
	Elapsed time.Duration // Time spent reading, excluding the slack sleep
	EOF     bool          // Source is exhausted after this frame
}

// Failed reports whether the frame counts as a deadline miss
func (r FrameResult) Failed() bool {
	return r.Outcome == FrameMissed
}

// Done reports whether the session must stop after this frame
func (r FrameResult) Done() bool {
	return r.EOF || r.Outcome == FrameEndOfStream
}
