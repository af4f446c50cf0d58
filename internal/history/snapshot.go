package history

import "time"

// State reports what the monitors look like after a change.
type State interface {
	Average() (uint8, error)
	Count() int
}

// Capture builds the snapshot of a change to target. The average is left at
// zero when no monitor is known.
func Capture(now time.Time, source Source, mode string, target uint8, failed bool, state State) *Snapshot {
	average, _ := state.Average()

	return &Snapshot{
		Timestamp: now,
		Source:    source,
		Mode:      mode,
		Target:    target,
		Average:   average,
		Monitors:  state.Count(),
		Failed:    failed,
	}
}
