package stream

import "sync/atomic"

// activeStreams counts live sessions process-wide. Connections start
// and end concurrently, so updates go through atomics; this is the only
// state shared across sessions.
var activeStreams atomic.Int64

// ActiveStreams returns the number of sessions currently running.
func ActiveStreams() int64 {
	return activeStreams.Load()
}
