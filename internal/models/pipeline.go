// internal/models/pipeline.go
package models

import "encoding/json"

// PipelineStatus is the outcome of one query's search pipeline.
type PipelineStatus string

const (
	// PipelineStatusComplete means the provider reported completion before the poll ceiling.
	PipelineStatusComplete PipelineStatus = "complete"
	// PipelineStatusStale means polling hit its ceiling and the final snapshot was not
	// complete either. A final snapshot that reports completion yields PipelineStatusComplete.
	PipelineStatusStale PipelineStatus = "stale"
	// PipelineStatusFailed means no session could be opened or the final fetch failed.
	PipelineStatusFailed PipelineStatus = "failed"
	// PipelineStatusMalformed means the final response failed the shape check.
	PipelineStatusMalformed PipelineStatus = "malformed"
)

// PipelineError is the serializable failure attached to a failed or malformed slot.
type PipelineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// PipelineResult holds one query's itineraries or its failure marker.
type PipelineResult struct {
	Index           int             `json:"index"`
	Query           SearchQuery     `json:"query"`
	Status          PipelineStatus  `json:"status"`
	PollStatus      string          `json:"pollStatus,omitempty"`
	SessionAttempts int             `json:"sessionAttempts"`
	PollAttempts    int             `json:"pollAttempts"`
	Itineraries     []Itinerary     `json:"itineraries"`
	Error           *PipelineError  `json:"error,omitempty"`
	Cached          bool            `json:"cached,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// HasResults reports whether the slot carries itineraries a caller can show,
// which includes stale snapshots.
func (r PipelineResult) HasResults() bool {
	return r.Status == PipelineStatusComplete || r.Status == PipelineStatusStale
}

// ItineraryCount returns the number of itineraries in the slot.
func (r PipelineResult) ItineraryCount() int {
	return len(r.Itineraries)
}
