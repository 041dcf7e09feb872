package domain

import (
	"fmt"
	"strings"
)

// Priority is the suggested handling priority of a feedback item.
type Priority string

// Priority values, most to least pressing.
const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority accepts a priority label in any case.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the four labels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Classification strategies, as reported in ClassificationResult.Strategy.
const (
	StrategyStatistical = "statistical"
	StrategyKeyword     = "keyword"
	StrategyRule        = "keyword_rule"
	StrategyNone        = "none"
)

// ClassificationResult is the transient output of one classification call.
type ClassificationResult struct {
	// Category is nil when nothing matched.
	Category   *string  `json:"category"`
	Confidence float64  `json:"confidence"`
	Priority   Priority `json:"priority"`
	// Strategy names the strategy whose answer was accepted.
	Strategy string `json:"strategy"`
	// ModelID is set when the statistical strategy produced the category.
	ModelID *int64 `json:"model_id,omitempty"`
}

// CategoryName returns the category or "" when unset.
func (r ClassificationResult) CategoryName() string {
	if r.Category == nil {
		return ""
	}
	return *r.Category
}

// Metrics are the evaluation scores of a training run.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	// Size is the number of examples the model was fitted on.
	Size int `json:"training_data_size"`
}
