package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/publish"
	"github.com/erdidoqan/postrella/internal/usecase"
)

// Pipeline is the set of operations the trigger API exposes.
type Pipeline interface {
	EnqueueJob(ctx context.Context, topicID int64, targets []string) (domain.ContentJob, error)
	ResubmitJob(ctx context.Context, jobID int64) error
	ProcessPendingJobs(ctx context.Context, limit int) (usecase.Summary, error)
	ProcessPendingTopicsAutoPublish(ctx context.Context, limit int) (usecase.Summary, error)
	PublishOutput(ctx context.Context, outputID int64, platforms []string, scheduledAt *time.Time) ([]publish.Result, error)
	PublishDue(ctx context.Context, limit int) (usecase.Summary, error)
}

// Handler serves the trigger routes on top of the pipeline.
type Handler struct {
	pipeline Pipeline
	logger   *slog.Logger
}

// NewHandler wires the handler; logger may be nil.
func NewHandler(pipeline Pipeline, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{pipeline: pipeline, logger: logger.With("component", "api")}
}

// Router builds the gin engine with every trigger route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/jobs", h.EnqueueJob)
	api.POST("/jobs/run", h.RunJobs)
	api.POST("/jobs/:id/retry", h.RetryJob)
	api.POST("/content/generate", h.AutoPublish)
	api.POST("/publish", h.Publish)
	api.POST("/publishes/due", h.PublishDue)
	return r
}

type enqueueRequest struct {
	TopicID int64    `json:"topic_id"`
	Targets []string `json:"targets"`
}

func (r enqueueRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TopicID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Targets, validation.Required),
	)
}

type limitRequest struct {
	Limit int `json:"limit"`
}

type publishRequest struct {
	OutputID    int64      `json:"output_id"`
	Platforms   []string   `json:"platforms"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (r publishRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OutputID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Platforms, validation.Required),
	)
}

type jobResponse struct {
	ID          int64    `json:"id"`
	TopicID     int64    `json:"topic_id"`
	Targets     []string `json:"targets"`
	Status      string   `json:"status"`
	Attempts    int      `json:"attempts"`
	MaxAttempts int      `json:"max_attempts"`
}

type publishResult struct {
	Platform    string     `json:"platform"`
	PublishID   int64      `json:"publish_id,omitempty"`
	Status      string     `json:"status"`
	RemoteURL   string     `json:"remote_url,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func (h *Handler) EnqueueJob(c *gin.Context) {
	var req enqueueRequest
	if !h.bind(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.pipeline.EnqueueJob(c.Request.Context(), req.TopicID, req.Targets)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, jobResponse{
		ID:          job.ID,
		TopicID:     job.TopicID,
		Targets:     job.Targets,
		Status:      string(job.Status),
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
	})
}

func (h *Handler) RetryJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	if err := h.pipeline.ResubmitJob(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": string(domain.JobPending)})
}

func (h *Handler) RunJobs(c *gin.Context) {
	h.runSweep(c, h.pipeline.ProcessPendingJobs)
}

func (h *Handler) AutoPublish(c *gin.Context) {
	h.runSweep(c, h.pipeline.ProcessPendingTopicsAutoPublish)
}

func (h *Handler) PublishDue(c *gin.Context) {
	h.runSweep(c, h.pipeline.PublishDue)
}

func (h *Handler) Publish(c *gin.Context) {
	var req publishRequest
	if !h.bind(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.pipeline.PublishOutput(c.Request.Context(), req.OutputID, req.Platforms, req.ScheduledAt)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]publishResult, 0, len(results))
	failed := 0
	for _, res := range results {
		item := publishResult{
			Platform:    res.Platform,
			PublishID:   res.Publish.ID,
			Status:      string(res.Publish.Status),
			RemoteURL:   res.Publish.RemoteURL,
			ScheduledAt: res.Publish.ScheduledAt,
		}
		if res.Err != nil {
			failed++
			item.Error = res.Err.Error()
			if item.Status == "" || item.Status == string(domain.PublishPending) {
				item.Status = string(domain.PublishFailed)
			}
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "failed": failed})
}

func (h *Handler) runSweep(c *gin.Context, run func(context.Context, int) (usecase.Summary, error)) {
	var req limitRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	sum, err := run(c.Request.Context(), req.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownPlatform):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSweepInProgress),
		errors.Is(err, domain.ErrAttemptsExhausted),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
