package tasks

import (
	"time"
)

// State is the position of one source in its ingestion run.
type State string

const (
	StatePending   State = "pending"
	StateFetching  State = "fetching"
	StateParsing   State = "parsing"
	StateUpserting State = "upserting"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// SourceRun records how one source fared in a run.
type SourceRun struct {
	Source      string        `json:"source"`
	Kind        string        `json:"kind"`
	State       State         `json:"state"`
	FailedIn    State         `json:"failed_in,omitempty"`
	Error       string        `json:"error,omitempty"`
	Created     int           `json:"created"`
	Existing    int           `json:"existing"`
	Skipped     int           `json:"skipped"`
	WriteErrors int           `json:"write_errors"`
	TooLarge    bool          `json:"too_large"`
	Duration    time.Duration `json:"duration_ns"`
}

// RunReport summarizes one ingestion run over every configured source.
type RunReport struct {
	ID         string      `json:"id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Boards     int         `json:"boards"`
	Sources    []SourceRun `json:"sources"`
	Done       int         `json:"done"`
	Failed     int         `json:"failed"`
	Created    int         `json:"created"`
}

func (r *RunReport) tally() {
	r.Done, r.Failed, r.Created = 0, 0, 0
	for _, run := range r.Sources {
		switch run.State {
		case StateDone:
			r.Done++
		case StateFailed:
			r.Failed++
		}
		r.Created += run.Created
	}
}

// AllFailed reports whether there was at least one source and none of them
// finished.
func (r *RunReport) AllFailed() bool {
	return len(r.Sources) > 0 && r.Done == 0
}

func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
