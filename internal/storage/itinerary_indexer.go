package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"escapade/internal/common/database"
	"escapade/internal/common/errors"
	"escapade/internal/common/logger"
	"escapade/internal/models"
)

const itineraryMapping = `{
  "mappings": {
    "properties": {
      "runId":           {"type": "keyword"},
      "searchId":        {"type": "long"},
      "queryIndex":      {"type": "integer"},
      "status":          {"type": "keyword"},
      "origin":          {"type": "keyword"},
      "destination":     {"type": "keyword"},
      "outboundDate":    {"type": "date", "format": "yyyy-MM-dd"},
      "inboundDate":     {"type": "date", "format": "yyyy-MM-dd"},
      "currency":        {"type": "keyword"},
      "tripType":        {"type": "keyword"},
      "price":           {"type": "double"},
      "agent":           {"type": "keyword"},
      "carriers":        {"type": "keyword"},
      "originName":      {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "destinationName": {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "itinerary":       {"type": "object", "enabled": false},
      "indexedAt":       {"type": "date"}
    }
  }
}`

// ItineraryDocument is the searchable projection of one itinerary.
type ItineraryDocument struct {
	RunID           string           `json:"runId"`
	SearchID        int64            `json:"searchId,omitempty"`
	QueryIndex      int              `json:"queryIndex"`
	Status          string           `json:"status"`
	Origin          string           `json:"origin"`
	Destination     string           `json:"destination"`
	OutboundDate    string           `json:"outboundDate"`
	InboundDate     string           `json:"inboundDate,omitempty"`
	Currency        string           `json:"currency"`
	TripType        string           `json:"tripType"`
	Price           float64          `json:"price"`
	Agent           string           `json:"agent,omitempty"`
	Carriers        []string         `json:"carriers,omitempty"`
	OriginName      string           `json:"originName,omitempty"`
	DestinationName string           `json:"destinationName,omitempty"`
	Itinerary       models.Itinerary `json:"itinerary"`
	IndexedAt       time.Time        `json:"indexedAt"`
}

// ItineraryIndexer bulk-indexes itineraries from complete and stale results.
type ItineraryIndexer struct {
	es    *database.ElasticsearchClient
	index string
	log   logger.Logger
	now   func() time.Time
}

func NewItineraryIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *ItineraryIndexer {
	return &ItineraryIndexer{es: es, index: index, log: log, now: time.Now}
}

// EnsureIndex creates the itinerary index with its mapping if it does not exist.
func (x *ItineraryIndexer) EnsureIndex(ctx context.Context) error {
	if err := x.es.EnsureIndex(ctx, x.index, itineraryMapping); err != nil {
		return errors.NewIndexingFailedError(x.index, err)
	}
	return nil
}

// Documents projects results onto index documents. Document ids are "<runID>-<query>-<itinerary>".
func (x *ItineraryIndexer) Documents(runID string, searchID int64, results []models.PipelineResult) ([]string, []ItineraryDocument) {
	var (
		ids  []string
		docs []ItineraryDocument
	)
	indexedAt := x.now().UTC()
	for _, res := range results {
		if !res.HasResults() {
			continue
		}
		for j, it := range res.Itineraries {
			ids = append(ids, fmt.Sprintf("%s-%d-%d", runID, res.Index, j))
			docs = append(docs, ItineraryDocument{
				RunID:           runID,
				SearchID:        searchID,
				QueryIndex:      res.Index,
				Status:          string(res.Status),
				Origin:          res.Query.OriginPlace,
				Destination:     res.Query.DestinationPlace,
				OutboundDate:    res.Query.OutboundDate,
				InboundDate:     res.Query.InboundDate,
				Currency:        res.Query.Currency,
				TripType:        string(it.TripType),
				Price:           it.Price,
				Agent:           it.Agent,
				Carriers:        it.Outbound.Carriers,
				OriginName:      it.Outbound.OriginName,
				DestinationName: it.Outbound.DestinationName,
				Itinerary:       it,
				IndexedAt:       indexedAt,
			})
		}
	}
	return ids, docs
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// IndexResults sends every itinerary in results in one bulk request and returns the number indexed.
func (x *ItineraryIndexer) IndexResults(ctx context.Context, runID string, searchID int64, results []models.PipelineResult) (int, error) {
	ids, docs := x.Documents(runID, searchID, results)
	if len(docs) == 0 {
		return 0, nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i, doc := range docs {
		action := map[string]map[string]string{"index": {"_index": x.index, "_id": ids[i]}}
		if err := enc.Encode(action); err != nil {
			return 0, errors.NewIndexingFailedError(x.index, err)
		}
		if err := enc.Encode(doc); err != nil {
			return 0, errors.NewIndexingFailedError(x.index, err)
		}
	}

	res, err := x.es.Client.Bulk(
		bytes.NewReader(body.Bytes()),
		x.es.Client.Bulk.WithContext(ctx),
		x.es.Client.Bulk.WithIndex(x.index),
	)
	if err != nil {
		return 0, errors.NewIndexingFailedError(x.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, errors.NewIndexingFailedError(x.index, fmt.Errorf("bulk request: %s", res.Status()))
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, errors.NewIndexingFailedError(x.index, fmt.Errorf("decode bulk response: %w", err))
	}

	failed := 0
	var firstReason string
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Error != nil || op.Status >= 300 {
				failed++
				if firstReason == "" && op.Error != nil {
					firstReason = op.Error.Type + ": " + op.Error.Reason
				}
			}
		}
	}

	indexed := len(docs) - failed
	if parsed.Errors || failed > 0 {
		x.log.Warn("Bulk indexing partially failed", map[string]interface{}{
			"index":   x.index,
			"runId":   runID,
			"failed":  failed,
			"indexed": indexed,
		})
		return indexed, errors.NewIndexingFailedError(x.index, fmt.Errorf("%d of %d documents rejected: %s", failed, len(docs), firstReason))
	}

	x.log.Debug("Itineraries indexed", map[string]interface{}{
		"index": x.index,
		"runId": runID,
		"count": indexed,
	})
	return indexed, nil
}
