package domain

import "time"

// Failure records a target that could not be collected.
type Failure struct {
	Position int    `json:"position"`
	Target   string `json:"target"`
	Err      error  `json:"-"`
}

func (f Failure) Error() string {
	if f.Err == nil {
		return f.Target
	}
	return f.Target + ": " + f.Err.Error()
}

// CollectResult holds the outcome of one collection pass. Snapshots keep
// target-list order.
type CollectResult struct {
	Snapshots []Snapshot
	Failures  []Failure
	Total     int
	Duration  time.Duration
}

func (r *CollectResult) Succeeded() int {
	return len(r.Snapshots)
}

// RunStats summarises a full collect, digest and publish cycle.
type RunStats struct {
	Total      int
	Succeeded  int
	Failed     int
	Failures   []Failure
	Published  bool
	PublishErr error
	Duration   time.Duration
}
