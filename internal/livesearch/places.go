// internal/livesearch/places.go
package livesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"escapade/internal/common/errors"
	commonhttp "escapade/internal/common/http"
	"escapade/internal/common/logger"
	"escapade/internal/common/metrics"
	"escapade/internal/models"
)

// AutosuggestPath is the prefix of the place autosuggest endpoint;
// country, currency and locale follow as path segments.
const AutosuggestPath = "/apiservices/autosuggest/v1.0/"

// catalogueQueries are the prefixes used to approximate the full place list,
// which the provider only exposes through prefix search.
var catalogueQueries = strings.Split("abcdefghijklmnopqrstuvwxyz", "")

type autosuggestResponse struct {
	Places []models.Place `json:"Places"`
}

// PlacesClient looks up provider place ids.
type PlacesClient struct {
	client   Doer
	endpoint string
	log      logger.Logger
}

func NewPlacesClient(client Doer, cfg Config, log logger.Logger) *PlacesClient {
	return &PlacesClient{
		client:   client,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + AutosuggestPath,
		log:      log,
	}
}

// Suggest returns the places matching query, in provider order.
func (c *PlacesClient) Suggest(ctx context.Context, country, currency, locale, query string) ([]models.Place, error) {
	target := c.endpoint + url.PathEscape(country) + "/" + url.PathEscape(currency) + "/" +
		url.PathEscape(locale) + "/?" + url.Values{"query": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewProviderRequestFailedError("autosuggest", err)
	}

	resp, err := c.client.DoWithContext(ctx, req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("autosuggest", "error").Inc()
		return nil, errors.NewProviderRequestFailedError("autosuggest", err)
	}
	defer commonhttp.DrainAndClose(resp)

	metrics.ProviderRequests.WithLabelValues("autosuggest", strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewProviderRequestFailedError("autosuggest",
			fmt.Errorf("status %d for query %q", resp.StatusCode, query))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewProviderRequestFailedError("autosuggest", err)
	}

	var out autosuggestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.NewMalformedResponseError(fmt.Sprintf("autosuggest %q: %v", query, err))
	}
	if out.Places == nil {
		return []models.Place{}, nil
	}
	return out.Places, nil
}

// All builds the place catalogue from one prefix search per letter. A place
// returned for several letters appears once, at its first position; entries
// without a PlaceId are dropped.
func (c *PlacesClient) All(ctx context.Context, country, currency, locale string) ([]models.Place, error) {
	seen := make(map[string]struct{})
	places := []models.Place{}

	for _, q := range catalogueQueries {
		batch, err := c.Suggest(ctx, country, currency, locale, q)
		if err != nil {
			return nil, err
		}
		for _, p := range batch {
			if p.PlaceID == "" {
				continue
			}
			if _, dup := seen[p.PlaceID]; dup {
				continue
			}
			seen[p.PlaceID] = struct{}{}
			places = append(places, p)
		}
	}

	c.log.Info("Place catalogue built", map[string]interface{}{
		"places":  len(places),
		"queries": len(catalogueQueries),
	})
	return places, nil
}
