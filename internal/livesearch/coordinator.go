// Package livesearch runs live pricing searches against the flight provider:
// it opens a session per query, polls it to completion, normalizes the
// snapshot and fans many queries out concurrently.
package livesearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"escapade/internal/common/errors"
	"escapade/internal/common/logger"
	"escapade/internal/common/metrics"
	"escapade/internal/common/observability"
	"escapade/internal/models"
)

// ResultCache stores complete pipeline results keyed by the encoded query.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.PipelineResult, bool, error)
	Set(ctx context.Context, key string, result models.PipelineResult, ttl time.Duration) error
}

// Coordinator runs one encode, open, poll, normalize pipeline per query.
type Coordinator struct {
	session        *SessionClient
	poller         *Poller
	cache          ResultCache
	cacheTTL       time.Duration
	maxConcurrency int
	obs            *observability.Observability
	log            logger.Logger
}

type Option func(*Coordinator)

// WithCache enables result reuse for identical queries. Only complete results are stored.
func WithCache(cache ResultCache) Option {
	return func(c *Coordinator) {
		c.cache = cache
	}
}

func WithObservability(obs *observability.Observability) Option {
	return func(c *Coordinator) {
		c.obs = obs
	}
}

func NewCoordinator(client Doer, cfg Config, log logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		session:        NewSessionClient(client, cfg, log),
		poller:         NewPoller(client, cfg, log),
		cacheTTL:       cfg.CacheTTL,
		maxConcurrency: cfg.MaxConcurrency,
		log:            log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchAll runs every query concurrently and returns one result per query in input
// order. A failing pipeline only affects its own slot.
func (c *Coordinator) SearchAll(ctx context.Context, queries []models.SearchQuery) []models.PipelineResult {
	return c.search(ctx, queries, c.maxConcurrency)
}

// SearchAllSequential runs the same pipelines one at a time. Its output is identical
// to SearchAll for the same provider responses.
func (c *Coordinator) SearchAllSequential(ctx context.Context, queries []models.SearchQuery) []models.PipelineResult {
	return c.search(ctx, queries, 1)
}

func (c *Coordinator) search(ctx context.Context, queries []models.SearchQuery, limit int) []models.PipelineResult {
	slots := make([]models.PipelineResult, len(queries))
	hits := c.lookupCached(ctx, queries, slots)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range queries {
		if hits[i] {
			continue
		}
		g.Go(func() error {
			slots[i] = c.Run(ctx, i, queries[i])
			return nil
		})
	}
	_ = g.Wait()

	c.storeComplete(ctx, slots, hits)
	return slots
}

// lookupCached fills slots for queries with a cached result before any pipeline starts,
// so duplicates inside one batch behave the same in both variants.
func (c *Coordinator) lookupCached(ctx context.Context, queries []models.SearchQuery, slots []models.PipelineResult) []bool {
	hits := make([]bool, len(queries))
	if c.cache == nil {
		return hits
	}

	for i, q := range queries {
		key, ok := cacheKeyFor(q)
		if !ok {
			continue
		}
		cached, found, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			c.log.Warn("Result cache lookup failed", map[string]interface{}{"index": i, "error": err})
		case !found || cached == nil:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		default:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			res := *cached
			res.Index = i
			res.Query = q
			res.Cached = true
			slots[i] = res
			hits[i] = true
		}
	}
	return hits
}

func (c *Coordinator) storeComplete(ctx context.Context, slots []models.PipelineResult, hits []bool) {
	if c.cache == nil {
		return
	}
	for i, res := range slots {
		if hits[i] || res.Status != models.PipelineStatusComplete {
			continue
		}
		key, ok := cacheKeyFor(res.Query)
		if !ok {
			continue
		}
		if err := c.cache.Set(ctx, key, res, c.cacheTTL); err != nil {
			c.log.Warn("Result cache store failed", map[string]interface{}{"index": i, "error": err})
		}
	}
}

// Run executes the pipeline for a single query and always returns a result for its slot.
func (c *Coordinator) Run(ctx context.Context, index int, q models.SearchQuery) models.PipelineResult {
	start := time.Now()
	ctx, span := c.obs.StartSpan(ctx, "livesearch.pipeline",
		attribute.Int("query.index", index),
		attribute.String("query.origin", q.OriginPlace),
		attribute.String("query.destination", q.DestinationPlace),
	)
	defer span.End()

	res := c.run(ctx, index, q)

	span.SetAttributes(
		attribute.String("pipeline.status", string(res.Status)),
		attribute.Int("pipeline.itineraries", len(res.Itineraries)),
	)
	if res.Status == models.PipelineStatusFailed || res.Status == models.PipelineStatusMalformed {
		span.SetStatus(codes.Error, res.Error.Code)
	}

	metrics.PipelineResults.WithLabelValues(string(res.Status)).Inc()
	metrics.PipelineDuration.WithLabelValues(string(res.Status)).Observe(time.Since(start).Seconds())
	c.obs.RecordItineraries(ctx, len(res.Itineraries), string(res.Status))

	c.log.Info("Live search pipeline finished", map[string]interface{}{
		"index":           index,
		"origin":          q.OriginPlace,
		"destination":     q.DestinationPlace,
		"status":          string(res.Status),
		"itineraries":     len(res.Itineraries),
		"sessionAttempts": res.SessionAttempts,
		"pollAttempts":    res.PollAttempts,
	})
	return res
}

func (c *Coordinator) run(ctx context.Context, index int, q models.SearchQuery) models.PipelineResult {
	res := models.PipelineResult{
		Index:       index,
		Query:       q,
		Itineraries: []models.Itinerary{},
	}

	form, err := EncodeQuery(q)
	if err != nil {
		return fail(res, models.PipelineStatusFailed, err)
	}

	session, err := c.session.Open(ctx, form)
	res.SessionAttempts = session.Attempts
	if err != nil {
		return fail(res, models.PipelineStatusFailed, err)
	}

	poll, err := c.poller.PollUntilComplete(ctx, session.Handle)
	res.PollAttempts = poll.Attempts
	res.PollStatus = poll.LastStatus
	if err != nil {
		return fail(res, models.PipelineStatusFailed, err)
	}
	res.Raw = poll.Response.Raw
	if poll.Response.Status != "" {
		res.PollStatus = poll.Response.Status
	}

	itineraries, err := Normalize(poll.Response)
	if err != nil {
		return fail(res, models.PipelineStatusMalformed, err)
	}
	res.Itineraries = itineraries

	// The final fetch can still report completion after the bounded polls ran out.
	if poll.Exhausted && poll.Response.Status != StatusComplete {
		res.Status = models.PipelineStatusStale
		res.Error = pipelineError(errors.NewPollExhaustedError(session.Handle, poll.Attempts, poll.LastStatus))
		return res
	}
	res.Status = models.PipelineStatusComplete
	return res
}

func fail(res models.PipelineResult, status models.PipelineStatus, err error) models.PipelineResult {
	res.Status = status
	res.Itineraries = []models.Itinerary{}
	res.Error = pipelineError(err)
	return res
}

func pipelineError(err error) *models.PipelineError {
	stdErr := errors.Normalize(err)
	return &models.PipelineError{
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
	}
}

// CacheKey derives the cache key of an encoded query.
func CacheKey(form url.Values) string {
	sum := sha256.Sum256([]byte(form.Encode()))
	return "livesearch:result:" + hex.EncodeToString(sum[:])
}

func cacheKeyFor(q models.SearchQuery) (string, bool) {
	form, err := EncodeQuery(q)
	if err != nil {
		return "", false
	}
	return CacheKey(form), true
}
