package selection

import (
	"time"

	"github.com/microsoft/sweep/internal/models"
)

// ProgressListener receives progress updates.
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event.
type EventType string

const (
	EventCandidateStart    EventType = "candidate_start"
	EventCandidateComplete EventType = "candidate_complete"
	EventCandidateFailed   EventType = "candidate_failed"
)

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	EventType EventType
	Index     int
	Total     int
	Candidate models.CandidateConfig
	Score     float64
	Duration  time.Duration
	Err       error
}

// OnProgress registers a progress listener. Listeners are never called
// concurrently, even when candidates are evaluated in parallel.
func (s *Selector) OnProgress(listener ProgressListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Selector) notify(event ProgressEvent) {
	s.listenersMu.Lock()
	listeners := make([]ProgressListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for _, listener := range listeners {
		listener(event)
	}
}
