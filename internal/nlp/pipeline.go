package nlp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yaroing/feedback-platform/internal/textnorm"
)

// blobVersion is bumped whenever the serialized layout changes.
const blobVersion = 1

// Config tunes the vectorizer and the naive Bayes model.
type Config struct {
	MaxFeatures int
	Alpha       float64
}

// Example is one labelled training text.
type Example struct {
	Text     string
	Category string
}

// Prediction is the model's best category for a text.
type Prediction struct {
	Category   string
	Confidence float64
}

// Pipeline chains text normalization, tf-idf vectorization and naive Bayes.
type Pipeline struct {
	vectorizer *Vectorizer
	model      *NaiveBayes
}

// NewPipeline returns an unfitted pipeline.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		vectorizer: NewVectorizer(cfg.MaxFeatures),
		model:      NewNaiveBayes(cfg.Alpha),
	}
}

// Fitted reports whether the pipeline can predict.
func (p *Pipeline) Fitted() bool {
	return p != nil && p.vectorizer != nil && p.model != nil &&
		p.vectorizer.Fitted() && p.model.Fitted()
}

// Classes returns the labels the pipeline was fitted on, sorted.
func (p *Pipeline) Classes() []string {
	if !p.Fitted() {
		return nil
	}
	out := make([]string, len(p.model.Classes))
	copy(out, p.model.Classes)
	return out
}

// Fit trains the pipeline on raw (not yet normalized) examples.
func (p *Pipeline) Fit(examples []Example) error {
	if len(examples) == 0 {
		return fmt.Errorf("fit: no examples: %w", ErrInsufficientTrainingData)
	}

	docs := make([]string, len(examples))
	labels := make([]string, len(examples))
	for i, ex := range examples {
		docs[i] = textnorm.Normalize(ex.Text)
		labels[i] = ex.Category
	}

	p.vectorizer.Fit(docs)
	if !p.vectorizer.Fitted() {
		return fmt.Errorf("fit: empty vocabulary: %w", ErrInsufficientTrainingData)
	}

	rows := make([]Vector, len(docs))
	for i, doc := range docs {
		rows[i] = p.vectorizer.Transform(doc)
	}
	p.model.Fit(rows, labels, len(p.vectorizer.IDF))

	return nil
}

// Predict returns the most probable category for a raw text. A text with no known
// terms still gets a prediction driven by the class priors.
func (p *Pipeline) Predict(text string) (Prediction, error) {
	if !p.Fitted() {
		return Prediction{}, ErrModelUnavailable
	}
	category, confidence := p.model.Predict(p.vectorizer.Transform(textnorm.Normalize(text)))
	return Prediction{Category: category, Confidence: confidence}, nil
}

type blob struct {
	Version    int         `json:"version"`
	Vectorizer *Vectorizer `json:"vectorizer"`
	Model      *NaiveBayes `json:"model"`
}

// MarshalBinary serializes a fitted pipeline.
func (p *Pipeline) MarshalBinary() ([]byte, error) {
	if !p.Fitted() {
		return nil, ErrModelUnavailable
	}
	data, err := json.Marshal(blob{Version: blobVersion, Vectorizer: p.vectorizer, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("marshal pipeline: %w", err)
	}
	return data, nil
}

// UnmarshalBinary restores a pipeline produced by MarshalBinary. Any malformed or
// inconsistent blob yields ErrSerialization and leaves p untouched.
func (p *Pipeline) UnmarshalBinary(data []byte) error {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if b.Version != blobVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrSerialization, b.Version)
	}
	if b.Vectorizer == nil || b.Model == nil {
		return fmt.Errorf("%w: incomplete blob", ErrSerialization)
	}

	restored := Pipeline{vectorizer: b.Vectorizer, model: b.Model}
	if err := restored.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	*p = restored
	return nil
}

// Load is shorthand for UnmarshalBinary into a fresh pipeline.
func Load(data []byte) (*Pipeline, error) {
	p := &Pipeline{}
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) validate() error {
	if !p.Fitted() {
		return errors.New("pipeline not fitted")
	}
	features := len(p.vectorizer.IDF)
	if len(p.vectorizer.Vocabulary) != features {
		return fmt.Errorf("vocabulary size %d does not match idf size %d", len(p.vectorizer.Vocabulary), features)
	}
	for term, idx := range p.vectorizer.Vocabulary {
		if idx < 0 || idx >= features {
			return fmt.Errorf("term %q has out-of-range index %d", term, idx)
		}
	}
	if len(p.model.ClassLogPrior) != len(p.model.Classes) {
		return errors.New("prior count does not match class count")
	}
	for c, row := range p.model.FeatureLogProb {
		if len(row) != features {
			return fmt.Errorf("class %d has %d feature weights, want %d", c, len(row), features)
		}
	}
	return nil
}
