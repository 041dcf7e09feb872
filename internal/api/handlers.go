package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
	"github.com/yaroing/feedback-platform/internal/registry"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
)

// Classifier is the classification engine.
type Classifier interface {
	ClassifyWithRules(ctx context.Context, text string, rules []domain.KeywordRule) domain.ClassificationResult
}

// ModelRegistry is the subset of registry.Registry the handlers use.
type ModelRegistry interface {
	List(ctx context.Context) ([]domain.Model, error)
	Activate(ctx context.Context, modelID int64) error
	Train(ctx context.Context, modelID int64, examples []nlp.Example) (domain.Metrics, error)
	Invalidate(modelID int64)
	Cached(modelID int64) bool
}

// RuleStore lists and creates keyword rules.
type RuleStore interface {
	List(ctx context.Context) ([]domain.KeywordRule, error)
	Create(ctx context.Context, rule *domain.KeywordRule) error
}

// CategoryResolver maps a category name to a stored category.
type CategoryResolver interface {
	FindByName(ctx context.Context, name string) (*domain.Category, error)
}

// ExampleSource lists validated training examples.
type ExampleSource interface {
	ListValidated(ctx context.Context) ([]domain.TrainingExample, error)
}

// PendingProcessor classifies one batch of stored feedback.
type PendingProcessor interface {
	ProcessPending(ctx context.Context) (int, error)
	Stats() map[string]any
}

// FeedbackLogSource lists the audit trail of a feedback item.
type FeedbackLogSource interface {
	ListLogs(ctx context.Context, feedbackID int64) ([]domain.FeedbackLog, error)
}

// Dependencies collects the handler's collaborators. Processor may be nil when the
// poller is disabled.
type Dependencies struct {
	Classifier Classifier
	Registry   ModelRegistry
	Rules      RuleStore
	Categories CategoryResolver
	Examples   ExampleSource
	Logs       FeedbackLogSource
	Processor  PendingProcessor
}

// Handler handles HTTP requests for the ops API
type Handler struct {
	deps   Dependencies
	logger infralogger.Logger
}

// NewHandler creates a new API handler
func NewHandler(deps Dependencies, logger infralogger.Logger) *Handler {
	if logger == nil {
		logger = infralogger.NewNop()
	}
	return &Handler{deps: deps, logger: logger}
}

// log returns the request-scoped logger when the request id middleware ran.
func (h *Handler) log(c *gin.Context) infralogger.Logger {
	if _, ok := c.Get("request_id"); ok {
		return infralogger.FromContext(c.Request.Context())
	}
	return h.logger
}

// ListModels handles GET /api/v1/models
func (h *Handler) ListModels(c *gin.Context) {
	models, err := h.deps.Registry.List(c.Request.Context())
	if err != nil {
		h.log(c).Error("Failed to list models", infralogger.Error(err))
		respondError(c, err)
		return
	}

	response := make([]ModelResponse, len(models))
	for i := range models {
		response[i] = toModelResponse(&models[i], h.deps.Registry.Cached(models[i].ID))
	}

	c.JSON(http.StatusOK, ModelsListResponse{Models: response, Total: len(response)})
}

// ActivateModel handles POST /api/v1/models/:id/activate
func (h *Handler) ActivateModel(c *gin.Context) {
	id, ok := modelID(c)
	if !ok {
		return
	}

	if err := h.deps.Registry.Activate(c.Request.Context(), id); err != nil {
		h.log(c).Warn("Model activation failed", infralogger.Int64("model_id", id), infralogger.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"model_id": id, "active": true})
}

// TrainModel handles POST /api/v1/models/:id/train with every validated example.
func (h *Handler) TrainModel(c *gin.Context) {
	id, ok := modelID(c)
	if !ok {
		return
	}

	training, err := h.deps.Examples.ListValidated(c.Request.Context())
	if err != nil {
		h.log(c).Error("Failed to load training examples", infralogger.Error(err))
		respondError(c, err)
		return
	}

	metrics, err := h.deps.Registry.Train(c.Request.Context(), id, registry.ExamplesFrom(training))
	if err != nil {
		h.log(c).Warn("Model training failed", infralogger.Int64("model_id", id), infralogger.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TrainResponse{ModelID: id, Metrics: metrics})
}

// InvalidateModelCache handles DELETE /api/v1/models/:id/cache
func (h *Handler) InvalidateModelCache(c *gin.Context) {
	id, ok := modelID(c)
	if !ok {
		return
	}

	h.deps.Registry.Invalidate(id)
	h.log(c).Info("Model cache invalidated", infralogger.Int64("model_id", id))
	c.Status(http.StatusNoContent)
}

// Classify handles POST /api/v1/classify
func (h *Handler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var rules []domain.KeywordRule
	if req.ApplyRules {
		var err error
		if rules, err = h.deps.Rules.List(c.Request.Context()); err != nil {
			h.log(c).Error("Failed to load keyword rules", infralogger.Error(err))
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, h.deps.Classifier.ClassifyWithRules(c.Request.Context(), req.Text, rules))
}

// ListRules handles GET /api/v1/rules
func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.deps.Rules.List(c.Request.Context())
	if err != nil {
		h.log(c).Error("Failed to list rules", infralogger.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RulesListResponse{Rules: rules, Total: len(rules)})
}

// CreateRule handles POST /api/v1/rules
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rule := domain.KeywordRule{
		Name:            req.Name,
		Keywords:        domain.NormalizeKeywords(req.Keywords),
		ConfidenceBoost: req.ConfidenceBoost,
	}
	if req.Priority != "" {
		p, err := domain.ParsePriority(req.Priority)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		rule.Priority = &p
	}
	if len(rule.Keywords) == 0 {
		badRequest(c, "keywords must contain at least one non-empty entry")
		return
	}

	category, err := h.deps.Categories.FindByName(c.Request.Context(), req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	rule.CategoryID = category.ID
	rule.CategoryName = category.Name

	if err = h.deps.Rules.Create(c.Request.Context(), &rule); err != nil {
		h.log(c).Error("Failed to create rule", infralogger.Error(err))
		respondError(c, err)
		return
	}

	h.log(c).Info("Keyword rule created",
		infralogger.Int64("rule_id", rule.ID),
		infralogger.String("category", rule.CategoryName),
	)
	c.JSON(http.StatusCreated, rule)
}

// ProcessPending handles POST /api/v1/feedback/process
func (h *Handler) ProcessPending(c *gin.Context) {
	if h.deps.Processor == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "feedback processor is disabled"})
		return
	}

	written, err := h.deps.Processor.ProcessPending(c.Request.Context())
	if err != nil {
		h.log(c).Error("Manual feedback processing failed", infralogger.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": written})
}

// ProcessorStats handles GET /api/v1/feedback/stats
func (h *Handler) ProcessorStats(c *gin.Context) {
	if h.deps.Processor == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "feedback processor is disabled"})
		return
	}
	c.JSON(http.StatusOK, h.deps.Processor.Stats())
}

// FeedbackLogs handles GET /api/v1/feedback/:id/logs
func (h *Handler) FeedbackLogs(c *gin.Context) {
	id, ok := pathID(c, "invalid feedback id")
	if !ok {
		return
	}

	logs, err := h.deps.Logs.ListLogs(c.Request.Context(), id)
	if err != nil {
		h.log(c).Error("Failed to list feedback logs", infralogger.Int64("feedback_id", id), infralogger.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FeedbackLogsResponse{FeedbackID: id, Logs: logs, Total: len(logs)})
}

func modelID(c *gin.Context) (int64, bool) {
	return pathID(c, "invalid model id")
}

func pathID(c *gin.Context, msg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, msg)
		return 0, false
	}
	return id, true
}
