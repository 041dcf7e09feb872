package domain

import "time"

// DefaultModelType is the type tag of TF-IDF + naive Bayes models.
const DefaultModelType = "TF-IDF + MultinomialNB"

// ModelState is the lifecycle position of a Model.
type ModelState string

const (
	ModelStateUntrained       ModelState = "untrained"
	ModelStateTrainedInactive ModelState = "trained_inactive"
	ModelStateTrainedActive   ModelState = "trained_active"
)

// Model is the registry entry of one statistical classifier. The fitted parameters live
// in a blob referenced by BlobKey.
type Model struct {
	ID               int64      `db:"id"                 json:"id"`
	Name             string     `db:"name"               json:"name"`
	Description      string     `db:"description"        json:"description"`
	ModelType        string     `db:"model_type"         json:"model_type"`
	Version          string     `db:"version"            json:"version"`
	BlobKey          string     `db:"blob_key"           json:"blob_key,omitempty"`
	IsActive         bool       `db:"is_active"          json:"is_active"`
	IsTrained        bool       `db:"is_trained"         json:"is_trained"`
	Accuracy         float64    `db:"accuracy"           json:"accuracy"`
	Precision        float64    `db:"precision_score"    json:"precision"`
	Recall           float64    `db:"recall_score"       json:"recall"`
	F1Score          float64    `db:"f1_score"           json:"f1_score"`
	TrainingDataSize int        `db:"training_data_size" json:"training_data_size"`
	UsageCount       int64      `db:"usage_count"        json:"usage_count"`
	LastUsed         *time.Time `db:"last_used"          json:"last_used,omitempty"`
	CreatedAt        time.Time  `db:"created_at"         json:"created_at"`
	LastTrained      *time.Time `db:"last_trained"       json:"last_trained,omitempty"`
}

// State derives the lifecycle state from the flags. An active but untrained entry is
// reported as untrained: it cannot serve predictions.
func (m *Model) State() ModelState {
	switch {
	case !m.IsTrained:
		return ModelStateUntrained
	case m.IsActive:
		return ModelStateTrainedActive
	default:
		return ModelStateTrainedInactive
	}
}

// ApplyMetrics copies a training run's results onto the entry.
func (m *Model) ApplyMetrics(metrics Metrics, blobKey string, trainedAt time.Time) {
	m.Accuracy = metrics.Accuracy
	m.Precision = metrics.Precision
	m.Recall = metrics.Recall
	m.F1Score = metrics.F1
	m.TrainingDataSize = metrics.Size
	m.BlobKey = blobKey
	m.IsTrained = true
	m.LastTrained = &trainedAt
}
