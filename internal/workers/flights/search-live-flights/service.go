package searchliveflights

import (
	"context"
	"time"

	"escapade/internal/common/errors"
	"escapade/internal/common/logger"
	"escapade/internal/common/observability"
	"escapade/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Searcher runs the live search fan-out.
type Searcher interface {
	SearchAll(ctx context.Context, queries []models.SearchQuery) []models.PipelineResult
	SearchAllSequential(ctx context.Context, queries []models.SearchQuery) []models.PipelineResult
}

// SearchStore records searches and their results.
type SearchStore interface {
	LogSearch(ctx context.Context, userID int64, name string, queries []models.SearchQuery) (int64, error)
	LogResults(ctx context.Context, userID, searchID int64, name string, results []models.PipelineResult) (int64, error)
	LogItineraries(ctx context.Context, userID, searchID, resultsID int64, itineraries []models.Itinerary) (int, error)
}

// ItineraryIndex receives itineraries for later analysis.
type ItineraryIndex interface {
	IndexResults(ctx context.Context, runID string, searchID int64, results []models.PipelineResult) (int, error)
}

// CompletionPublisher notifies a waiting process instance.
type CompletionPublisher interface {
	PublishSearchCompleted(ctx context.Context, correlationKey string, variables map[string]interface{}) error
}

type ServiceDependencies struct {
	Searcher      Searcher
	Store         SearchStore
	Index         ItineraryIndex
	Publisher     CompletionPublisher
	Observability *observability.Observability
	Logger        logger.Logger
}

type Service struct {
	config    *Config
	searcher  Searcher
	store     SearchStore
	index     ItineraryIndex
	publisher CompletionPublisher
	validator *QueryValidator
	obs       *observability.Observability
	logger    logger.Logger
	newRunID  func() string
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:    config,
		searcher:  deps.Searcher,
		store:     deps.Store,
		index:     deps.Index,
		publisher: deps.Publisher,
		validator: NewQueryValidator(config.MaxQueries),
		obs:       deps.Observability,
		logger:    deps.Logger,
		newRunID:  uuid.NewString,
	}
}

// Execute validates the queries, runs the fan-out and records the outcome. Only validation
// and the initial search log are fatal; result storage, indexing and the completion
// message are best-effort once itineraries exist.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctx, span := s.obs.StartSpan(ctx, "search-live-flights.execute",
		attribute.Int("queries", len(input.Queries)),
		attribute.Bool("sequential", input.Sequential),
	)
	defer span.End()

	queries := make([]models.SearchQuery, len(input.Queries))
	for i, q := range input.Queries {
		queries[i] = q.WithDefaults(s.config.Defaults)
	}

	if res := s.validator.Validate(queries); !res.Valid {
		return nil, errors.NewSearchValidationFailedError(res.Summary())
	}

	runID := s.newRunID()
	log := s.logger.WithFields(map[string]interface{}{"runId": runID, "queries": len(queries)})

	var searchID int64
	if s.store != nil {
		id, err := s.store.LogSearch(ctx, input.UserID, input.SearchName, queries)
		if err != nil {
			return nil, err
		}
		searchID = id
	}

	start := time.Now()
	var results []models.PipelineResult
	if input.Sequential {
		results = s.searcher.SearchAllSequential(ctx, queries)
	} else {
		results = s.searcher.SearchAll(ctx, queries)
	}
	summary := summarize(results)

	log.Info("Live search finished", map[string]interface{}{
		"searchId":    searchID,
		"complete":    summary.Complete,
		"stale":       summary.Stale,
		"failed":      summary.Failed,
		"malformed":   summary.Malformed,
		"cached":      summary.Cached,
		"itineraries": summary.Itineraries,
		"duration":    time.Since(start).String(),
	})

	out := &Output{
		RunID:    runID,
		SearchID: searchID,
		Results:  results,
		Summary:  summary,
	}

	if s.store != nil {
		out.ResultsID = s.storeResults(ctx, log, input, searchID, results)
	}

	if s.index != nil {
		n, err := s.index.IndexResults(ctx, runID, searchID, results)
		if err != nil {
			log.Warn("Itinerary indexing failed", map[string]interface{}{"error": err.Error(), "indexed": n})
		}
		out.Indexed = n
	}

	if s.publisher != nil && input.CorrelationKey != "" {
		vars := map[string]interface{}{
			"runId":       runID,
			"searchId":    searchID,
			"summary":     summary,
			"itineraries": summary.Itineraries,
		}
		if err := s.publisher.PublishSearchCompleted(ctx, input.CorrelationKey, vars); err != nil {
			log.Warn("Completion message not published", map[string]interface{}{
				"correlationKey": input.CorrelationKey,
				"error":          err.Error(),
			})
		}
	}

	return out, nil
}

func (s *Service) storeResults(ctx context.Context, log logger.Logger, input *Input, searchID int64, results []models.PipelineResult) int64 {
	resultsID, err := s.store.LogResults(ctx, input.UserID, searchID, input.SearchName, results)
	if err != nil {
		log.Warn("Search results not stored", map[string]interface{}{"searchId": searchID, "error": err.Error()})
		return 0
	}

	var itineraries []models.Itinerary
	for _, r := range results {
		if r.HasResults() {
			itineraries = append(itineraries, r.Itineraries...)
		}
	}
	if _, err := s.store.LogItineraries(ctx, input.UserID, searchID, resultsID, itineraries); err != nil {
		log.Warn("Itineraries not stored", map[string]interface{}{"searchId": searchID, "error": err.Error()})
	}
	return resultsID
}
