// Package nlp implements the statistical feedback classifier: a TF-IDF vectorizer feeding
// a multinomial naive Bayes model, with evaluation and (de)serialization helpers.
package nlp

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable means no fitted model can serve a prediction. Callers fall back
	// to keyword scoring rather than retrying.
	ErrModelUnavailable = errors.New("statistical model unavailable")

	// ErrInsufficientTrainingData means the examples cannot produce a model: none at all,
	// no usable vocabulary, or categories below the configured minimum.
	ErrInsufficientTrainingData = errors.New("insufficient training data")

	// ErrSerialization means a persisted model blob is missing or corrupt. It wraps
	// ErrModelUnavailable, so errors.Is matches both.
	ErrSerialization = fmt.Errorf("model blob missing or corrupt: %w", ErrModelUnavailable)
)
