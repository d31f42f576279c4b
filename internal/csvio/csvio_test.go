package csvio

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"escapade/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaults = models.QueryDefaults{Country: "UK", Currency: "GBP", Locale: "en-GB", Adults: 1}

func TestReadQueries(t *testing.T) {
	input := strings.Join([]string{
		"originplace,destinationplace,outboundpartialdate,inboundpartialdate,adults,notes",
		"LHR-sky,JFK-sky,2026-11-02,2026-11-09,2,anniversary",
		",,,,,",
		"EDI-sky,CDG-sky,2026-12-01,,,",
	}, "\n")

	queries, err := ReadQueries(strings.NewReader(input), defaults)
	require.NoError(t, err)
	require.Len(t, queries, 2)

	assert.Equal(t, models.SearchQuery{
		Country:          "UK",
		Currency:         "GBP",
		Locale:           "en-GB",
		OriginPlace:      "LHR-sky",
		DestinationPlace: "JFK-sky",
		OutboundDate:     "2026-11-02",
		InboundDate:      "2026-11-09",
		Adults:           2,
	}, queries[0])

	assert.Equal(t, "EDI-sky", queries[1].OriginPlace)
	assert.Equal(t, "", queries[1].InboundDate)
	assert.Equal(t, 1, queries[1].Adults)
}

func TestReadQueries_JSONStyleHeaders(t *testing.T) {
	input := "Country,Currency,Locale,originPlace,destinationPlace,outboundDate\n" +
		"US,USD,en-US,SFO-sky,LAX-sky,2026-11-20\n"

	queries, err := ReadQueries(strings.NewReader(input), defaults)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "US", queries[0].Country)
	assert.Equal(t, "USD", queries[0].Currency)
	assert.Equal(t, "en-US", queries[0].Locale)
	assert.Equal(t, "2026-11-20", queries[0].OutboundDate)
}

func TestReadQueries_Errors(t *testing.T) {
	t.Run("bad adults", func(t *testing.T) {
		_, err := ReadQueries(strings.NewReader("originplace,adults\nLHR-sky,two\n"), defaults)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("empty input", func(t *testing.T) {
		queries, err := ReadQueries(strings.NewReader(""), defaults)
		require.NoError(t, err)
		assert.Empty(t, queries)
	})
}

func sampleResults() []models.PipelineResult {
	it := models.Itinerary{
		TripType:        models.TripTypeOneWay,
		OutboundLegID:   "leg-1",
		Price:           99.5,
		QuoteAgeMinutes: 4,
		Agent:           "Trip Agent",
		Outbound: models.Leg{
			ID:              "leg-1",
			Resolved:        true,
			OriginID:        13554,
			OriginName:      "London Heathrow",
			DestinationID:   12712,
			DestinationName: "New York John F. Kennedy",
			CarrierIDs:      []int{881},
			Carriers:        []string{"British Airways"},
		},
	}
	return []models.PipelineResult{
		{Index: 0, Status: models.PipelineStatusComplete, Itineraries: []models.Itinerary{it, it}},
		{Index: 1, Status: models.PipelineStatusFailed, Itineraries: []models.Itinerary{}},
		{Index: 2, Status: models.PipelineStatusStale, Itineraries: []models.Itinerary{it}},
	}
}

func TestWriteItineraries(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteItineraries(&buf, sampleResults(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	header := records[0]
	assert.Equal(t, "QueryIndex", header[0])
	assert.Equal(t, "Status", header[1])
	assert.Equal(t, models.FlatColumns, header[2:])

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %s not found", name)
		return -1
	}

	assert.Equal(t, "0", records[1][0])
	assert.Equal(t, "complete", records[1][1])
	assert.Equal(t, "99.5", records[1][col("Price")])
	assert.Equal(t, `["British Airways"]`, records[1][col("carriersListOB")])
	assert.Equal(t, "London Heathrow", records[1][col("OriginStationNameOB")])
	assert.Equal(t, "", records[1][col("OriginStationIB")])
	assert.Equal(t, "2", records[3][0])
	assert.Equal(t, "stale", records[3][1])
}

func TestWriteItinerariesFile_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	n, err := WriteItinerariesFile(path, sampleResults(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = WriteItinerariesFile(path, sampleResults()[2:], true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 5)

	headers := 0
	for _, r := range records {
		if r[0] == "QueryIndex" {
			headers++
		}
	}
	assert.Equal(t, 1, headers)

	n, err = WriteItinerariesFile(path, sampleResults()[:1], false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPlaces_WriteThenReadIDs(t *testing.T) {
	places := []models.Place{
		{PlaceID: "LHR-sky", PlaceName: "London Heathrow", CountryID: "UK-sky", CityID: "LOND-sky", CountryName: "United Kingdom"},
		{PlaceID: "JFK-sky", PlaceName: "New York John F. Kennedy", CountryID: "US-sky", CityID: "NYCA-sky", CountryName: "United States"},
	}
	path := filepath.Join(t.TempDir(), "places.csv")
	require.NoError(t, WritePlacesFile(path, places))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "PlaceId,PlaceName,CountryId,RegionId,CityId,CountryName", lines[0])

	ids, err := ReadPlaceIDsFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"LHR-sky": {}, "JFK-sky": {}}, ids)
}

func TestReadPlaceIDs(t *testing.T) {
	t.Run("column anywhere", func(t *testing.T) {
		ids, err := ReadPlaceIDs(strings.NewReader("PlaceName,placeid\nEdinburgh,EDI-sky\n,\nGlasgow,\n"))
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"EDI-sky": {}}, ids)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := ReadPlaceIDs(strings.NewReader("PlaceName\nEdinburgh\n"))
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		ids, err := ReadPlaceIDs(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
