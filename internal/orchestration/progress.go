package orchestration

import "github.com/microsoft/sweep/internal/models"

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventDataLoading       EventType = "data_loading"
	EventSweepStart        EventType = "sweep_start"
	EventSweepCached       EventType = "sweep_cached"
	EventSweepComplete     EventType = "sweep_complete"
	EventCandidateStart    EventType = "candidate_start"
	EventCandidateComplete EventType = "candidate_complete"
	EventCandidateFailed   EventType = "candidate_failed"
	EventBaselineComplete  EventType = "baseline_complete"
)

// ProgressEvent represents a progress update. Index is the enumeration
// index of the candidate for candidate events.
type ProgressEvent struct {
	EventType  EventType
	Index      int
	Total      int
	Candidate  models.CandidateConfig
	Score      float64
	DurationMs int64
	Err        error
}
