package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yaroing/feedback-platform/internal/database"
	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
	"github.com/yaroing/feedback-platform/internal/registry"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ModelResponse represents a registry entry for operators.
type ModelResponse struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	ModelType        string     `json:"model_type"`
	Version          string     `json:"version"`
	State            string     `json:"state"`
	IsActive         bool       `json:"is_active"`
	Cached           bool       `json:"cached"`
	Accuracy         float64    `json:"accuracy"`
	F1Score          float64    `json:"f1_score"`
	TrainingDataSize int        `json:"training_data_size"`
	UsageCount       int64      `json:"usage_count"`
	LastUsed         *time.Time `json:"last_used,omitempty"`
	LastTrained      *time.Time `json:"last_trained,omitempty"`
}

// ModelsListResponse represents the model list.
type ModelsListResponse struct {
	Models []ModelResponse `json:"models"`
	Total  int             `json:"total"`
}

// ClassifyRequest represents a one-off classification request.
type ClassifyRequest struct {
	Text       string `json:"text"        binding:"required"`
	ApplyRules bool   `json:"apply_rules"`
}

// TrainResponse reports a training run started through the API.
type TrainResponse struct {
	ModelID int64          `json:"model_id"`
	Metrics domain.Metrics `json:"metrics"`
}

// CreateRuleRequest represents a request to create a keyword rule.
type CreateRuleRequest struct {
	Name            string   `json:"name"             binding:"required"`
	Category        string   `json:"category"         binding:"required"`
	Keywords        []string `json:"keywords"         binding:"required,min=1"`
	Priority        string   `json:"priority"`
	ConfidenceBoost float64  `json:"confidence_boost"`
}

// RulesListResponse represents the keyword rule list.
type RulesListResponse struct {
	Rules []domain.KeywordRule `json:"rules"`
	Total int                  `json:"total"`
}

// FeedbackLogsResponse represents the audit trail of one feedback item.
type FeedbackLogsResponse struct {
	FeedbackID int64                `json:"feedback_id"`
	Logs       []domain.FeedbackLog `json:"logs"`
	Total      int                  `json:"total"`
}

func toModelResponse(m *domain.Model, cached bool) ModelResponse {
	return ModelResponse{
		ID:               m.ID,
		Name:             m.Name,
		ModelType:        m.ModelType,
		Version:          m.Version,
		State:            string(m.State()),
		IsActive:         m.IsActive,
		Cached:           cached,
		Accuracy:         m.Accuracy,
		F1Score:          m.F1Score,
		TrainingDataSize: m.TrainingDataSize,
		UsageCount:       m.UsageCount,
		LastUsed:         m.LastUsed,
		LastTrained:      m.LastTrained,
	}
}

// statusFor maps registry and storage errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrModelNotFound), errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrTrainingInProgress):
		return http.StatusConflict
	case errors.Is(err, registry.ErrModelNotTrained), errors.Is(err, nlp.ErrInsufficientTrainingData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
