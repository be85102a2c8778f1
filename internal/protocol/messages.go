package protocol

import "time"

// SessionStarted announces that a session build began.
type SessionStarted struct {
	RunID     string    `json:"run_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionResult reports the outcome of one session build.
type SessionResult struct {
	RunID       string    `json:"run_id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Status      string    `json:"status"` // built, skipped, failed
	DurationSec float64   `json:"duration_sec,omitempty"`
	Segments    int       `json:"segments,omitempty"`
	CueIndex    int       `json:"cue_index,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

const (
	SubjectSessionStarted   = "coach.build.session.started"
	SubjectSessionCompleted = "coach.build.session.completed"
	SubjectSessionFailed    = "coach.build.session.failed"
)
