package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yaroing/feedback-platform/internal/domain"
)

const modelColumns = `id, name, description, model_type, version, blob_key, is_active, is_trained,
	accuracy, precision_score, recall_score, f1_score, training_data_size, usage_count,
	last_used, created_at, last_trained`

// ModelRepository handles database operations for the model registry.
type ModelRepository struct {
	db *sqlx.DB
}

// NewModelRepository creates a new model repository.
func NewModelRepository(db *sqlx.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// Get retrieves a model by its ID.
func (r *ModelRepository) Get(ctx context.Context, id int64) (*domain.Model, error) {
	var m domain.Model
	query := r.db.Rebind(`SELECT ` + modelColumns + ` FROM nlp_models WHERE id = ?`)

	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("model %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return &m, nil
}

// List returns every model, newest first.
func (r *ModelRepository) List(ctx context.Context) ([]domain.Model, error) {
	models := make([]domain.Model, 0)
	query := `SELECT ` + modelColumns + ` FROM nlp_models ORDER BY created_at DESC, id DESC`

	if err := r.db.SelectContext(ctx, &models, query); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

// FindActive returns the active model of modelType.
func (r *ModelRepository) FindActive(ctx context.Context, modelType string) (*domain.Model, error) {
	var m domain.Model
	query := r.db.Rebind(`SELECT ` + modelColumns + ` FROM nlp_models
		WHERE model_type = ? AND is_active = ? ORDER BY id DESC LIMIT 1`)

	if err := r.db.GetContext(ctx, &m, query, modelType, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active model: %w", err)
	}
	return &m, nil
}

// Create inserts a new, inactive model.
func (r *ModelRepository) Create(ctx context.Context, m *domain.Model) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.IsActive = false

	query := r.db.Rebind(`
		INSERT INTO nlp_models (name, description, model_type, version, blob_key, is_active, is_trained,
			accuracy, precision_score, recall_score, f1_score, training_data_size, usage_count,
			created_at, last_trained)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowContext(ctx, query,
		m.Name,
		m.Description,
		m.ModelType,
		m.Version,
		m.BlobKey,
		m.IsActive,
		m.IsTrained,
		m.Accuracy,
		m.Precision,
		m.Recall,
		m.F1Score,
		m.TrainingDataSize,
		m.UsageCount,
		m.CreatedAt,
		m.LastTrained,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}
	return nil
}

// UpdateTraining stores the outcome of a training run.
func (r *ModelRepository) UpdateTraining(ctx context.Context, m *domain.Model) error {
	query := r.db.Rebind(`
		UPDATE nlp_models
		SET blob_key = ?, is_trained = ?, accuracy = ?, precision_score = ?, recall_score = ?,
			f1_score = ?, training_data_size = ?, last_trained = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		m.BlobKey,
		m.IsTrained,
		m.Accuracy,
		m.Precision,
		m.Recall,
		m.F1Score,
		m.TrainingDataSize,
		m.LastTrained,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update model: %w", err)
	}
	return expectOneRow(result, m.ID)
}

// Activate marks id active and every other model of the same type inactive in one
// transaction.
func (r *ModelRepository) Activate(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var modelType string
	if err = tx.GetContext(ctx, &modelType, tx.Rebind(`SELECT model_type FROM nlp_models WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("model %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to read model type: %w", err)
	}

	deactivate := tx.Rebind(`UPDATE nlp_models SET is_active = ? WHERE model_type = ? AND id <> ? AND is_active = ?`)
	if _, err = tx.ExecContext(ctx, deactivate, false, modelType, id, true); err != nil {
		return fmt.Errorf("failed to deactivate sibling models: %w", err)
	}

	if _, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE nlp_models SET is_active = ? WHERE id = ?`), true, id); err != nil {
		return fmt.Errorf("failed to activate model: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	return nil
}

// IncrementUsage bumps the usage counter of id and stamps last_used.
func (r *ModelRepository) IncrementUsage(ctx context.Context, id int64, at time.Time) error {
	query := r.db.Rebind(`UPDATE nlp_models SET usage_count = usage_count + 1, last_used = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to increment model usage: %w", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("row %d: %w", id, ErrNotFound)
	}
	return nil
}
