package searchliveflights

import "escapade/internal/models"

type Input struct {
	UserID         int64                `json:"userId,omitempty"`
	SearchName     string               `json:"searchName,omitempty"`
	Queries        []models.SearchQuery `json:"queries"`
	Sequential     bool                 `json:"sequential,omitempty"`
	CorrelationKey string               `json:"correlationKey,omitempty"`
}

// Summary counts slots by status.
type Summary struct {
	Total       int `json:"total"`
	Complete    int `json:"complete"`
	Stale       int `json:"stale"`
	Failed      int `json:"failed"`
	Malformed   int `json:"malformed"`
	Cached      int `json:"cached"`
	Itineraries int `json:"itineraries"`
}

type Output struct {
	RunID     string                  `json:"runId"`
	SearchID  int64                   `json:"searchId,omitempty"`
	ResultsID int64                   `json:"resultsId,omitempty"`
	Results   []models.PipelineResult `json:"results"`
	Summary   Summary                 `json:"summary"`
	Indexed   int                     `json:"indexed"`
}

func summarize(results []models.PipelineResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case models.PipelineStatusComplete:
			s.Complete++
		case models.PipelineStatusStale:
			s.Stale++
		case models.PipelineStatusFailed:
			s.Failed++
		case models.PipelineStatusMalformed:
			s.Malformed++
		}
		if r.Cached {
			s.Cached++
		}
		s.Itineraries += r.ItineraryCount()
	}
	return s
}
