package searchliveflights

import (
	"testing"
	"time"

	"escapade/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedValidator(maxQueries int) *QueryValidator {
	v := NewQueryValidator(maxQueries)
	v.now = func() time.Time { return time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC) }
	return v
}

func validQuery() models.SearchQuery {
	return models.SearchQuery{
		Country:          "UK",
		Currency:         "GBP",
		Locale:           "en-GB",
		OriginPlace:      "LHR-sky",
		DestinationPlace: "JFK-sky",
		OutboundDate:     "2026-11-02",
		InboundDate:      "2026-11-09",
		Adults:           1,
	}
}

func TestQueryValidator_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(q *models.SearchQuery)
		wantField string
		wantCode  string
	}{
		{
			name:   "valid round trip",
			mutate: func(q *models.SearchQuery) {},
		},
		{
			name:   "valid one way departing today",
			mutate: func(q *models.SearchQuery) { q.OutboundDate = "2026-10-18"; q.InboundDate = "" },
		},
		{
			name:   "same day return",
			mutate: func(q *models.SearchQuery) { q.InboundDate = q.OutboundDate },
		},
		{
			name:      "outbound in the past",
			mutate:    func(q *models.SearchQuery) { q.OutboundDate = "2026-10-17"; q.InboundDate = "" },
			wantField: "queries[0].outboundDate",
			wantCode:  "DATE_IN_PAST",
		},
		{
			name:      "return before outbound",
			mutate:    func(q *models.SearchQuery) { q.InboundDate = "2026-11-01" },
			wantField: "queries[0].inboundDate",
			wantCode:  "DATE_ORDER",
		},
		{
			name:      "missing origin",
			mutate:    func(q *models.SearchQuery) { q.OriginPlace = "" },
			wantField: "queries[0].originPlace",
			wantCode:  "REQUIRED",
		},
		{
			name:      "same origin and destination",
			mutate:    func(q *models.SearchQuery) { q.DestinationPlace = q.OriginPlace },
			wantField: "queries[0].destinationPlace",
			wantCode:  "NEFIELD",
		},
		{
			name:      "bad date layout",
			mutate:    func(q *models.SearchQuery) { q.OutboundDate = "02/11/2026" },
			wantField: "queries[0].outboundDate",
			wantCode:  "DATETIME",
		},
		{
			name:      "no adults",
			mutate:    func(q *models.SearchQuery) { q.Adults = 0 },
			wantField: "queries[0].adults",
			wantCode:  "MIN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuery()
			tt.mutate(&q)

			res := fixedValidator(20).Validate([]models.SearchQuery{q})
			if tt.wantCode == "" {
				assert.True(t, res.Valid, res.Summary())
				return
			}
			require.False(t, res.Valid)
			require.Len(t, res.Errors, 1, res.Summary())
			assert.Equal(t, tt.wantField, res.Errors[0].Field)
			assert.Equal(t, tt.wantCode, res.Errors[0].Code)
		})
	}
}

func TestQueryValidator_QueryCount(t *testing.T) {
	v := fixedValidator(2)

	res := v.Validate(nil)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Summary(), "at least one query")

	res = v.Validate([]models.SearchQuery{validQuery(), validQuery(), validQuery()})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Summary(), "at most 2 queries")
}

func TestQueryValidator_ReportsEveryQuery(t *testing.T) {
	bad := validQuery()
	bad.OutboundDate = "2025-01-01"
	bad.InboundDate = ""

	res := fixedValidator(20).Validate([]models.SearchQuery{validQuery(), bad, bad})
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "queries[1].outboundDate", res.Errors[0].Field)
	assert.Equal(t, "queries[2].outboundDate", res.Errors[1].Field)
}

func TestQueryValidator_KnownPlaces(t *testing.T) {
	v := fixedValidator(5).WithKnownPlaces(map[string]struct{}{"LHR-sky": {}, "JFK-sky": {}})

	assert.True(t, v.Validate([]models.SearchQuery{validQuery()}).Valid)

	q := validQuery()
	q.DestinationPlace = "XXX-sky"
	res := v.Validate([]models.SearchQuery{q})
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "queries[0].destinationPlace", res.Errors[0].Field)
	assert.Equal(t, "UNKNOWN_PLACE", res.Errors[0].Code)

	open := fixedValidator(5).WithKnownPlaces(map[string]struct{}{})
	assert.True(t, open.Validate([]models.SearchQuery{q}).Valid)
}
