package searchliveflights

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"escapade/internal/common/config"
	"escapade/internal/common/errors"
	"escapade/internal/common/logger"
	"escapade/internal/common/metrics"
	"escapade/internal/common/observability"
	"escapade/internal/common/validation"
	"escapade/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "search-live-flights"

type Handler struct {
	config       *Config
	logger       logger.Logger
	service      *Service
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Searcher      Searcher
	Store         SearchStore
	Index         ItineraryIndex
	Publisher     CompletionPublisher
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Searcher == nil {
		return nil, fmt.Errorf("%s requires a searcher", TaskType)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"taskType": TaskType})

	h := &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		errorHandler: errors.NewErrorHandler(loggerInstance),
		obs:          opts.Observability,
	}
	h.service = NewService(ServiceDependencies{
		Searcher:      opts.Searcher,
		Store:         opts.Store,
		Index:         opts.Index,
		Publisher:     opts.Publisher,
		Observability: opts.Observability,
		Logger:        loggerInstance,
	}, workerConfig)

	return h, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing live search request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	if !h.config.Enabled {
		h.logger.Info("Worker disabled by configuration", nil)
		return h.completeJob(ctx, client, job, &Output{Results: []models.PipelineResult{}})
	}

	input, err := h.parseInput(job)
	if err != nil {
		return h.failJob(ctx, client, job, err, startTime)
	}

	output, err := h.service.Execute(ctx, input)
	if err != nil {
		return h.failJob(ctx, client, job, err, startTime)
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "completed")
	return nil
}

// failJob hands err to the ErrorHandler, which retries or throws a BPMN error.
func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) error {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.obs.RecordJobProcessed(ctx, "failed")
	h.obs.RecordJobDuration(ctx, time.Since(startTime), "failed")
	h.errorHandler.HandleJobError(ctx, client, job, err)
	return nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	raw := []byte(job.GetVariables())

	res, err := validation.ValidateDocument(InputSchema, raw)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, errors.NewSearchValidationFailedError(res.Summary())
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewSearchValidationFailedError(err.Error())
	}
	return &input, nil
}

// jobVariables drops raw provider snapshots, which stay in the results table.
func jobVariables(output *Output) map[string]interface{} {
	results := make([]models.PipelineResult, len(output.Results))
	for i, r := range output.Results {
		r.Raw = nil
		results[i] = r
	}
	return map[string]interface{}{
		"runId":     output.RunID,
		"searchId":  output.SearchID,
		"resultsId": output.ResultsID,
		"summary":   output.Summary,
		"results":   results,
		"indexed":   output.Indexed,
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(jobVariables(output))
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}

	h.logger.Info("Live search job completed", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"runId":       output.RunID,
		"itineraries": output.Summary.Itineraries,
	})
	return nil
}

// Execute runs the search without a Zeebe job, for tools and tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}
