package livesearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"escapade/internal/common/errors"
	commonhttp "escapade/internal/common/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// autosuggestServer answers every letter with an empty list except those in bodies.
func autosuggestServer(t *testing.T, status int, bodies map[string]string) (*httptest.Server, *[]string) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()

		assert.Equal(t, "test-key", r.Header.Get("x-rapidapi-key"))
		if !strings.HasPrefix(r.URL.Path, AutosuggestPath) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		body, ok := bodies[r.URL.Query().Get("query")]
		if !ok {
			body = `{"Places":[]}`
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func newPlacesClient(t *testing.T, srv *httptest.Server) *PlacesClient {
	client := commonhttp.NewClient(5*time.Second, commonhttp.WithAuth("provider.test", "test-key"))
	return NewPlacesClient(client, Config{BaseURL: srv.URL}, newTestLogger(t))
}

func TestPlacesClient_Suggest(t *testing.T) {
	srv, paths := autosuggestServer(t, 0, map[string]string{
		"edin": `{"Places":[{"PlaceId":"EDI-sky","PlaceName":"Edinburgh","CountryId":"UK-sky","CountryName":"United Kingdom"}]}`,
	})

	places, err := newPlacesClient(t, srv).Suggest(context.Background(), "UK", "GBP", "en-GB", "edin")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "EDI-sky", places[0].PlaceID)
	assert.Equal(t, "Edinburgh", places[0].PlaceName)
	assert.Equal(t, "United Kingdom", places[0].CountryName)

	require.Len(t, *paths, 1)
	assert.Equal(t, "/apiservices/autosuggest/v1.0/UK/GBP/en-GB/?query=edin", (*paths)[0])
}

func TestPlacesClient_AllRemovesDuplicates(t *testing.T) {
	srv, paths := autosuggestServer(t, 0, map[string]string{
		"a": `{"Places":[{"PlaceId":"ABZ-sky","PlaceName":"Aberdeen"},{"PlaceId":"LHR-sky","PlaceName":"London Heathrow"}]}`,
		"l": `{"Places":[{"PlaceId":"LHR-sky","PlaceName":"London Heathrow"},{"PlaceId":"LGW-sky","PlaceName":"London Gatwick"}]}`,
		"n": `{"Places":[{"PlaceId":"","PlaceName":"Nowhere"},{"PlaceId":"ABZ-sky","PlaceName":"Aberdeen"}]}`,
	})

	places, err := newPlacesClient(t, srv).All(context.Background(), "UK", "GBP", "en-GB")
	require.NoError(t, err)

	ids := make([]string, len(places))
	for i, p := range places {
		ids[i] = p.PlaceID
	}
	assert.Equal(t, []string{"ABZ-sky", "LHR-sky", "LGW-sky"}, ids)
	assert.Len(t, *paths, 26)
}

func TestPlacesClient_Errors(t *testing.T) {
	t.Run("provider status", func(t *testing.T) {
		srv, _ := autosuggestServer(t, http.StatusTooManyRequests, nil)
		_, err := newPlacesClient(t, srv).All(context.Background(), "UK", "GBP", "en-GB")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrProviderRequestFailed)
		assert.Contains(t, errors.Normalize(err).Details, "429")
	})

	t.Run("body is not json", func(t *testing.T) {
		srv, _ := autosuggestServer(t, 0, map[string]string{"x": `<html>`})
		_, err := newPlacesClient(t, srv).Suggest(context.Background(), "UK", "GBP", "en-GB", "x")
		assert.ErrorIs(t, err, errors.ErrMalformedResponse)
	})

	t.Run("no places key", func(t *testing.T) {
		srv, _ := autosuggestServer(t, 0, map[string]string{"q": `{}`})
		places, err := newPlacesClient(t, srv).Suggest(context.Background(), "UK", "GBP", "en-GB", "q")
		require.NoError(t, err)
		assert.NotNil(t, places)
		assert.Empty(t, places)
	})
}
