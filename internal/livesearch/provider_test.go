package livesearch

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	commonhttp "escapade/internal/common/http"
	"escapade/internal/common/logger"
	"escapade/internal/models"
)

const (
	testPageSize      = 10
	testUnboundedSize = 100000
)

// route scripts the provider's behaviour for one origin place.
type route struct {
	sessionStatuses []int    // statuses returned by successive session opens; the last repeats
	omitLocation    bool     // answer success without a Location header
	polls           []string // bodies of successive bounded polls; the last repeats
	final           string   // body of the unbounded fetch
	finalStatus     int
	delay           time.Duration
}

// fakeProvider is an httptest-backed stand-in for the live pricing API.
// Sessions are keyed by the query's originPlace.
type fakeProvider struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	routes       map[string]*route
	sessionCalls map[string]int
	pollCalls    map[string]int
	finalCalls   map[string]int
	pageSizes    map[string][]string
	lastHeaders  http.Header
}

func newFakeProvider(t *testing.T, routes map[string]*route) *fakeProvider {
	fp := &fakeProvider{
		t:            t,
		routes:       routes,
		sessionCalls: map[string]int{},
		pollCalls:    map[string]int{},
		finalCalls:   map[string]int{},
		pageSizes:    map[string][]string{},
	}
	fp.server = httptest.NewServer(http.HandlerFunc(fp.serve))
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == SessionPath:
		fp.openSession(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, PollPath):
		fp.poll(w, r, strings.TrimPrefix(r.URL.Path, PollPath))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fp *fakeProvider) openSession(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	form, err := url.ParseQuery(string(body))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	q, err := DecodeQuery(form)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	fp.mu.Lock()
	rt := fp.routes[q.OriginPlace]
	fp.sessionCalls[q.OriginPlace]++
	call := fp.sessionCalls[q.OriginPlace]
	fp.lastHeaders = r.Header.Clone()
	fp.mu.Unlock()

	if rt == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if rt.delay > 0 {
		time.Sleep(rt.delay)
	}

	status := pick(rt.sessionStatuses, call, http.StatusCreated)
	if (status == http.StatusOK || status == http.StatusCreated) && !rt.omitLocation {
		w.Header().Set("Location", "http://partners.api.example/apiservices/pricing/uk2/v1.0/"+q.OriginPlace)
	}
	w.WriteHeader(status)
}

func (fp *fakeProvider) poll(w http.ResponseWriter, r *http.Request, handle string) {
	pageSize := r.URL.Query().Get("pageSize")

	fp.mu.Lock()
	rt := fp.routes[handle]
	fp.pageSizes[handle] = append(fp.pageSizes[handle], pageSize)
	var call int
	final := pageSize == "100000"
	if final {
		fp.finalCalls[handle]++
	} else {
		fp.pollCalls[handle]++
		call = fp.pollCalls[handle]
	}
	fp.mu.Unlock()

	if rt == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if final {
		if rt.finalStatus != 0 {
			w.WriteHeader(rt.finalStatus)
			return
		}
		_, _ = io.WriteString(w, rt.final)
		return
	}
	_, _ = io.WriteString(w, pickString(rt.polls, call))
}

func (fp *fakeProvider) counts(handle string) (sessions, polls, finals int) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.sessionCalls[handle], fp.pollCalls[handle], fp.finalCalls[handle]
}

func (fp *fakeProvider) config() Config {
	return Config{
		BaseURL:            fp.server.URL,
		SessionMaxAttempts: 20,
		PollMaxAttempts:    30,
		PollInterval:       0,
		PageSize:           testPageSize,
		UnboundedPageSize:  testUnboundedSize,
	}
}

func (fp *fakeProvider) client() *commonhttp.Client {
	return commonhttp.NewClient(5*time.Second, commonhttp.WithAuth("provider.test", "test-key"))
}

func pick(seq []int, call int, fallback int) int {
	if len(seq) == 0 {
		return fallback
	}
	if call > len(seq) {
		return seq[len(seq)-1]
	}
	return seq[call-1]
}

func pickString(seq []string, call int) string {
	if len(seq) == 0 {
		return `{"Status":"UpdatesPending"}`
	}
	if call > len(seq) {
		return seq[len(seq)-1]
	}
	return seq[call-1]
}

// ==========================
// Snapshot fixtures
// ==========================

func statusBody(status string) string {
	return `{"Status":"` + status + `","Itineraries":[],"Legs":[],"Places":[],"Carriers":[]}`
}

// singleItinerarySnapshot has one itinerary referencing one leg, its two places and one carrier.
func singleItinerarySnapshot(status string) *PollResponse {
	return &PollResponse{
		Status: status,
		Itineraries: []ProviderItinerary{{
			OutboundLegID: "13554-2001100900--32171-0-12712-2001101205",
			PricingOptions: []PricingOption{{
				Agents:            []int{4499211},
				QuoteAgeInMinutes: 3,
				Price:             312.45,
				DeeplinkURL:       "https://partners.example/deeplink/1",
			}},
		}},
		Legs: []ProviderLeg{{
			ID:                 "13554-2001100900--32171-0-12712-2001101205",
			OriginStation:      13554,
			DestinationStation: 12712,
			Departure:          "2030-01-10T09:00:00",
			Arrival:            "2030-01-10T12:05:00",
			Duration:           485,
			Carriers:           []int{881},
			Stops:              []int{},
			Directionality:     "Outbound",
		}},
		Places: []ProviderPlace{
			{ID: 13554, Code: "LHR", Type: "Airport", Name: "London Heathrow"},
			{ID: 12712, Code: "JFK", Type: "Airport", Name: "New York John F. Kennedy"},
		},
		Carriers: []ProviderCarrier{{ID: 881, Code: "BA", Name: "British Airways"}},
		Agents:   []ProviderAgent{{ID: 4499211, Name: "British Airways", Type: "Airline"}},
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(data)
}

func testQuery(origin string) models.SearchQuery {
	return models.SearchQuery{
		Country:          "UK",
		Currency:         "GBP",
		Locale:           "en-GB",
		OriginPlace:      origin,
		DestinationPlace: "JFK-sky",
		OutboundDate:     "2030-01-10",
		Adults:           1,
	}
}

// ==========================
// Test logger
// ==========================

type testLogger struct {
	t *testing.T
}

func newTestLogger(t *testing.T) logger.Logger {
	return &testLogger{t: t}
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}
