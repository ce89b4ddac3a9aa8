package types

import (
	"fmt"
	"strconv"
	"time"
)

// SessionState tracks a playback session through its lifecycle
type SessionState int

const (
	StateIdle SessionState = iota
	StateRunning
	StateEndOfStream
	StateTimeLimitReached
	StateCancelled
	StateFailed
	StateReported
)

var stateNames = map[SessionState]string{
	StateIdle:             "idle",
	StateRunning:          "running",
	StateEndOfStream:      "end_of_stream",
	StateTimeLimitReached: "time_limit_reached",
	StateCancelled:        "cancelled",
	StateFailed:           "failed",
	StateReported:         "reported",
}

// String returns the string representation of a session state
func (s SessionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// SessionStatus is a live snapshot of one session
type SessionStatus struct {
	Session int          `json:"session"`
	Path    string       `json:"path"`
	State   SessionState `json:"-"`
	Total   uint64       `json:"total"`
	Fails   uint64       `json:"fails"`
	Bytes   uint64       `json:"bytes"`
}

// Percent returns the share of missed frames so far
func (s SessionStatus) Percent() float64 {
	return percent(s.Fails, s.Total)
}

// SessionReport is the final result of one session
type SessionReport struct {
	Session int
	Path    string
	Total   uint64
	Fails   uint64
	Reason  SessionState // StateEndOfStream, StateTimeLimitReached or StateCancelled
	Elapsed time.Duration
}

// Percent returns the share of missed frames, 0 when nothing was played
func (r SessionReport) Percent() float64 {
	return percent(r.Fails, r.Total)
}

func percent(fails, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(fails) / float64(total)
}

// String formats the report line printed for every session
func (r SessionReport) String() string {
	return fmt.Sprintf("%d frames, %d failures (%s%%)",
		r.Total, r.Fails, strconv.FormatFloat(r.Percent(), 'f', -1, 64))
}
