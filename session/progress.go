package session

import (
	"fmt"
	"math"
)

// Milestone percentages reported to observers.
const (
	percentPending     = 30
	percentInProgress  = 60
	percentLongRunning = 90
	percentCompleted   = 100
)

// Progress is an immutable snapshot of how far a generation has advanced.
// Percent is always in [0,100]; fractional input is floored.
type Progress struct {
	percent  int
	message  string
	complete bool
	failed   bool
}

// NewProgress builds a snapshot with the given percent (clamped and floored)
// and message. The snapshot is neither complete nor failed.
func NewProgress(percent float64, message string) Progress {
	return Progress{percent: clampPercent(percent), message: message}
}

// Pending is the state immediately after submission.
func Pending() Progress {
	return Progress{percent: percentPending, message: "waiting to start"}
}

// InProgress is entered once the provider call is dispatched.
func InProgress(message string) Progress {
	if message == "" {
		message = "generating"
	}
	return Progress{percent: percentInProgress, message: message}
}

// LongRunning marks a generation that is still going after the caller's
// threshold. Purely observational.
func LongRunning(message string) Progress {
	if message == "" {
		message = "still generating, this may take a while"
	}
	return Progress{percent: percentLongRunning, message: message}
}

// Completed is the successful terminal snapshot.
func Completed() Progress {
	return Progress{percent: percentCompleted, complete: true}
}

// Failed is the terminal snapshot for a failed generation, carrying the
// error's message.
func Failed(err error) Progress {
	msg := "generation failed"
	if err != nil {
		msg = fmt.Sprintf("generation failed: %v", err)
	}
	return Progress{message: msg, complete: true, failed: true}
}

// TimedOut is the terminal snapshot for a caller-side deadline expiring
// before any terminal outcome. Reported distinctly from Failed.
func TimedOut() Progress {
	return Progress{message: "generation timed out", complete: true, failed: true}
}

// Canceled is the terminal snapshot for a caller- or owner-initiated abort.
func Canceled() Progress {
	return Progress{message: "generation canceled", complete: true, failed: true}
}

// Percent returns the progress percentage in [0,100].
func (p Progress) Percent() int { return p.percent }

// Message returns the status message, empty by default.
func (p Progress) Message() string { return p.message }

// IsComplete reports whether the snapshot is terminal.
func (p Progress) IsComplete() bool { return p.complete }

// IsSuccessful reports a complete snapshot with no failure marker.
func (p Progress) IsSuccessful() bool { return p.complete && !p.failed && p.percent == percentCompleted }

// IsFailed reports a complete snapshot carrying a failure marker.
func (p Progress) IsFailed() bool { return p.complete && p.failed }

// IsPending reports a snapshot that has not reached a terminal state.
func (p Progress) IsPending() bool { return !p.complete }

func clampPercent(percent float64) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return int(math.Floor(percent))
}
