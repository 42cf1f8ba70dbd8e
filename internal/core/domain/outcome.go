package domain

import "time"

// Status is the per-file result of the organizer pipeline
type Status string

const (
	StatusOrganized Status = "organized"
	StatusDuplicate Status = "duplicate"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusPlanned   Status = "planned"
)

// Outcome records what happened to one file
type Outcome struct {
	Source         string            `json:"source"`
	Destination    string            `json:"destination,omitempty"`
	Status         Status            `json:"status"`
	Classification Classification    `json:"classification"`
	Metadata       Metadata          `json:"metadata"`
	ExternalIDs    map[string]string `json:"external_ids,omitempty"`
	SummaryPath    string            `json:"summary_path,omitempty"`
	Hash           string            `json:"sha256,omitempty"`
	Err            error             `json:"-"`
}

// Failed builds a failed outcome for path
func Failed(path string, err error) Outcome {
	return Outcome{Source: path, Status: StatusFailed, Err: err}
}

// BatchReport aggregates outcomes for one directory
type BatchReport struct {
	Directory  string
	Total      int
	Organized  int
	Duplicates int
	Unchanged  int
	Skipped    int
	Failed     int
	Planned    int
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Add counts an outcome
func (r *BatchReport) Add(o Outcome) {
	r.Total++
	switch o.Status {
	case StatusOrganized:
		r.Organized++
	case StatusDuplicate:
		r.Duplicates++
	case StatusUnchanged:
		r.Unchanged++
	case StatusSkipped:
		r.Skipped++
	case StatusPlanned:
		r.Planned++
	default:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Merge folds another report into r
func (r *BatchReport) Merge(other BatchReport) {
	for _, o := range other.Outcomes {
		r.Add(o)
	}
}

// Duration returns how long the batch took
func (r BatchReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
