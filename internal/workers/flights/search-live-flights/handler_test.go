package searchliveflights

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"escapade/internal/common/config"
	"escapade/internal/common/errors"
	"escapade/internal/common/logger"
	"escapade/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []string
	queries []models.SearchQuery
	results func(queries []models.SearchQuery) []models.PipelineResult
}

func (f *fakeSearcher) record(mode string, queries []models.SearchQuery) []models.PipelineResult {
	f.mu.Lock()
	f.calls = append(f.calls, mode)
	f.queries = queries
	f.mu.Unlock()
	return f.results(queries)
}

func (f *fakeSearcher) SearchAll(_ context.Context, queries []models.SearchQuery) []models.PipelineResult {
	return f.record("concurrent", queries)
}

func (f *fakeSearcher) SearchAllSequential(_ context.Context, queries []models.SearchQuery) []models.PipelineResult {
	return f.record("sequential", queries)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) LogSearch(ctx context.Context, userID int64, name string, queries []models.SearchQuery) (int64, error) {
	args := m.Called(ctx, userID, name, queries)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) LogResults(ctx context.Context, userID, searchID int64, name string, results []models.PipelineResult) (int64, error) {
	args := m.Called(ctx, userID, searchID, name, results)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) LogItineraries(ctx context.Context, userID, searchID, resultsID int64, itineraries []models.Itinerary) (int, error) {
	args := m.Called(ctx, userID, searchID, resultsID, itineraries)
	return args.Int(0), args.Error(1)
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) IndexResults(ctx context.Context, runID string, searchID int64, results []models.PipelineResult) (int, error) {
	args := m.Called(ctx, runID, searchID, results)
	return args.Int(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSearchCompleted(ctx context.Context, correlationKey string, variables map[string]interface{}) error {
	args := m.Called(ctx, correlationKey, variables)
	return args.Error(0)
}

// ==========================
// Test Helpers
// ==========================

func createMockJob(key int64, variables interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "live-flight-search",
		ElementId:          "Activity_SearchLiveFlights",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func sampleItinerary() models.Itinerary {
	return models.Itinerary{
		TripType:      models.TripTypeOneWay,
		OutboundLegID: "leg-1",
		Price:         312.45,
		Agent:         "Trip Agent",
		Outbound: models.Leg{
			ID:              "leg-1",
			Resolved:        true,
			OriginName:      "London Heathrow",
			DestinationName: "New York John F. Kennedy",
		},
	}
}

// mixedResults answers the first query with one itinerary and fails the rest.
func mixedResults(queries []models.SearchQuery) []models.PipelineResult {
	out := make([]models.PipelineResult, len(queries))
	for i, q := range queries {
		out[i] = models.PipelineResult{
			Index:       i,
			Query:       q,
			Status:      models.PipelineStatusFailed,
			Itineraries: []models.Itinerary{},
			Error:       &models.PipelineError{Code: "SESSION_CREATION_FAILED"},
		}
		if i == 0 {
			out[i].Status = models.PipelineStatusComplete
			out[i].Error = nil
			out[i].Itineraries = []models.Itinerary{sampleItinerary()}
			out[i].Raw = json.RawMessage(`{"Status":"UpdatesComplete"}`)
		}
	}
	return out
}

func createTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Second
	return cfg
}

func createTestInput() *Input {
	q := validQuery()
	q.Country, q.Currency, q.Locale = "", "", ""
	return &Input{
		UserID:     42,
		SearchName: "weekend in NYC",
		Queries:    []models.SearchQuery{q, validQuery()},
	}
}

func newTestService(t *testing.T, deps ServiceDependencies) *Service {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logger.NewTestLogger(t)
	}
	svc := NewService(deps, createTestConfig())
	svc.validator.now = func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) }
	svc.newRunID = func() string { return "run-1" }
	return svc
}

// ==========================
// Handler Creation Tests
// ==========================

func TestNewHandler(t *testing.T) {
	t.Run("defaults from app config", func(t *testing.T) {
		appCfg := &config.Config{
			Workers: map[string]config.WorkerConfig{
				TaskType: {Enabled: true, MaxJobsActive: 3, Timeout: 120000},
			},
			Search: config.SearchConfig{DefaultCountry: "US", DefaultCurrency: "USD", DefaultLocale: "en-US", DefaultAdults: 2, MaxQueries: 5},
		}

		h, err := NewHandler(HandlerOptions{AppConfig: appCfg, Searcher: &fakeSearcher{}, Logger: logger.NewTestLogger(t)})
		require.NoError(t, err)

		cfg := h.GetConfig()
		assert.Equal(t, TaskType, h.GetTaskType())
		assert.True(t, h.IsEnabled())
		assert.Equal(t, 3, cfg.MaxJobsActive)
		assert.Equal(t, 2*time.Minute, cfg.Timeout)
		assert.Equal(t, 5, cfg.MaxQueries)
		assert.Equal(t, models.QueryDefaults{Country: "US", Currency: "USD", Locale: "en-US", Adults: 2}, cfg.Defaults)
	})

	t.Run("missing searcher", func(t *testing.T) {
		_, err := NewHandler(HandlerOptions{CustomConfig: createTestConfig(), Logger: logger.NewTestLogger(t)})
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.MaxQueries = 0
		_, err := NewHandler(HandlerOptions{CustomConfig: cfg, Searcher: &fakeSearcher{}, Logger: logger.NewTestLogger(t)})
		assert.Error(t, err)
	})
}

// ==========================
// Input Parsing Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h, err := NewHandler(HandlerOptions{CustomConfig: createTestConfig(), Searcher: &fakeSearcher{}, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	t.Run("valid variables", func(t *testing.T) {
		input, err := h.parseInput(createMockJob(1, createTestInput()))
		require.NoError(t, err)
		assert.Equal(t, int64(42), input.UserID)
		assert.Len(t, input.Queries, 2)
		assert.Equal(t, "LHR-sky", input.Queries[0].OriginPlace)
	})

	tests := []struct {
		name      string
		variables interface{}
		wantText  string
	}{
		{name: "no queries", variables: map[string]interface{}{"userId": 1}, wantText: "queries"},
		{name: "empty queries", variables: map[string]interface{}{"queries": []interface{}{}}, wantText: "queries"},
		{
			name:      "query without origin",
			variables: map[string]interface{}{"queries": []interface{}{map[string]interface{}{"destinationPlace": "JFK-sky", "outboundDate": "2026-11-02"}}},
			wantText:  "originPlace",
		},
		{name: "wrong type", variables: map[string]interface{}{"queries": "LHR-JFK"}, wantText: "queries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(2, tt.variables))
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeSearchValidationFailed, errors.CodeOf(err))
			assert.Contains(t, errors.Normalize(err).Details, tt.wantText)
		})
	}
}

// ==========================
// Service Tests
// ==========================

func TestService_Execute_Success(t *testing.T) {
	searcher := &fakeSearcher{results: mixedResults}
	store := new(MockStore)
	index := new(MockIndex)
	publisher := new(MockPublisher)

	input := createTestInput()
	input.CorrelationKey = "search-42"
	withDefaults := []models.SearchQuery{validQuery(), validQuery()}

	store.On("LogSearch", mock.Anything, int64(42), "weekend in NYC", withDefaults).Return(int64(7), nil)
	store.On("LogResults", mock.Anything, int64(42), int64(7), "weekend in NYC", mock.AnythingOfType("[]models.PipelineResult")).Return(int64(11), nil)
	store.On("LogItineraries", mock.Anything, int64(42), int64(7), int64(11), []models.Itinerary{sampleItinerary()}).Return(1, nil)
	index.On("IndexResults", mock.Anything, "run-1", int64(7), mock.AnythingOfType("[]models.PipelineResult")).Return(1, nil)
	publisher.On("PublishSearchCompleted", mock.Anything, "search-42", mock.MatchedBy(func(vars map[string]interface{}) bool {
		return vars["runId"] == "run-1" && vars["searchId"] == int64(7) && vars["itineraries"] == 1
	})).Return(nil)

	svc := newTestService(t, ServiceDependencies{Searcher: searcher, Store: store, Index: index, Publisher: publisher})

	out, err := svc.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []string{"concurrent"}, searcher.calls)
	assert.Equal(t, withDefaults, searcher.queries)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, int64(7), out.SearchID)
	assert.Equal(t, int64(11), out.ResultsID)
	assert.Equal(t, 1, out.Indexed)
	assert.Equal(t, Summary{Total: 2, Complete: 1, Failed: 1, Itineraries: 1}, out.Summary)
	require.Len(t, out.Results, 2)
	assert.Equal(t, models.PipelineStatusFailed, out.Results[1].Status)

	store.AssertExpectations(t)
	index.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestService_Execute_Sequential(t *testing.T) {
	searcher := &fakeSearcher{results: mixedResults}
	svc := newTestService(t, ServiceDependencies{Searcher: searcher})

	input := createTestInput()
	input.Sequential = true

	out, err := svc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, []string{"sequential"}, searcher.calls)
	assert.Zero(t, out.SearchID)
	assert.Zero(t, out.Indexed)
}

func TestService_Execute_ValidationFailure(t *testing.T) {
	searcher := &fakeSearcher{results: mixedResults}
	store := new(MockStore)
	svc := newTestService(t, ServiceDependencies{Searcher: searcher, Store: store})

	input := createTestInput()
	input.Queries[1].OutboundDate = "2020-01-01"
	input.Queries[1].InboundDate = ""

	_, err := svc.Execute(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSearchValidationFailed, errors.CodeOf(err))
	assert.Contains(t, errors.Normalize(err).Details, "queries[1].outboundDate")
	assert.Empty(t, searcher.calls)
	store.AssertNotCalled(t, "LogSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Execute_SearchLogFailureIsFatal(t *testing.T) {
	searcher := &fakeSearcher{results: mixedResults}
	store := new(MockStore)
	store.On("LogSearch", mock.Anything, int64(42), "weekend in NYC", mock.Anything).
		Return(int64(0), errors.NewDatabaseInsertFailedError("search_live_log", stderrors.New("connection refused")))

	svc := newTestService(t, ServiceDependencies{Searcher: searcher, Store: store})

	_, err := svc.Execute(context.Background(), createTestInput())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabaseInsertFailed, errors.CodeOf(err))
	assert.Empty(t, searcher.calls)
}

func TestService_Execute_BestEffortAfterSearch(t *testing.T) {
	searcher := &fakeSearcher{results: mixedResults}
	store := new(MockStore)
	index := new(MockIndex)
	publisher := new(MockPublisher)

	store.On("LogSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(7), nil)
	store.On("LogResults", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), errors.NewDatabaseInsertFailedError("search_live_results", stderrors.New("disk full")))
	index.On("IndexResults", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(0, errors.NewIndexingFailedError("escapade-itineraries", stderrors.New("cluster red")))
	publisher.On("PublishSearchCompleted", mock.Anything, "search-42", mock.Anything).Return(stderrors.New("gateway unavailable"))

	svc := newTestService(t, ServiceDependencies{Searcher: searcher, Store: store, Index: index, Publisher: publisher})

	input := createTestInput()
	input.CorrelationKey = "search-42"

	out, err := svc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.SearchID)
	assert.Zero(t, out.ResultsID)
	assert.Zero(t, out.Indexed)
	assert.Equal(t, 1, out.Summary.Itineraries)
	store.AssertNotCalled(t, "LogItineraries", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ==========================
// Output Tests
// ==========================

func TestJobVariables_DropsRawSnapshots(t *testing.T) {
	results := mixedResults([]models.SearchQuery{validQuery()})
	out := &Output{RunID: "run-1", SearchID: 7, Results: results, Summary: summarize(results)}

	vars := jobVariables(out)
	got := vars["results"].([]models.PipelineResult)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Raw)
	assert.NotNil(t, out.Results[0].Raw, "caller's results must not be modified")
	assert.Equal(t, "run-1", vars["runId"])
}

func TestSummarize(t *testing.T) {
	results := []models.PipelineResult{
		{Status: models.PipelineStatusComplete, Itineraries: []models.Itinerary{sampleItinerary(), sampleItinerary()}, Cached: true},
		{Status: models.PipelineStatusStale, Itineraries: []models.Itinerary{sampleItinerary()}},
		{Status: models.PipelineStatusMalformed, Itineraries: []models.Itinerary{}},
		{Status: models.PipelineStatusFailed, Itineraries: []models.Itinerary{}},
	}

	assert.Equal(t, Summary{Total: 4, Complete: 1, Stale: 1, Failed: 1, Malformed: 1, Cached: 1, Itineraries: 3}, summarize(results))
}
