package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yaroing/feedback-platform/internal/domain"
)

// TrainingDataRepository reads labelled training examples.
type TrainingDataRepository struct {
	db *sqlx.DB
}

// NewTrainingDataRepository creates a new training data repository.
func NewTrainingDataRepository(db *sqlx.DB) *TrainingDataRepository {
	return &TrainingDataRepository{db: db}
}

// ListValidated returns the validated examples with their category names.
func (r *TrainingDataRepository) ListValidated(ctx context.Context) ([]domain.TrainingExample, error) {
	examples := make([]domain.TrainingExample, 0)
	query := r.db.Rebind(`
		SELECT t.id, t.content, t.category_id, c.name AS category_name, t.is_validated,
		       t.added_at, t.validated_at
		FROM training_data t
		JOIN categories c ON c.id = t.category_id
		WHERE t.is_validated = ?
		ORDER BY t.id
	`)

	if err := r.db.SelectContext(ctx, &examples, query, true); err != nil {
		return nil, fmt.Errorf("failed to list validated training data: %w", err)
	}
	return examples, nil
}

// CountValidated returns the number of validated examples.
func (r *TrainingDataRepository) CountValidated(ctx context.Context) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM training_data WHERE is_validated = ?`)

	if err := r.db.GetContext(ctx, &n, query, true); err != nil {
		return 0, fmt.Errorf("failed to count validated training data: %w", err)
	}
	return n, nil
}

// Create inserts an example. Validated examples get validated_at stamped.
func (r *TrainingDataRepository) Create(ctx context.Context, ex *domain.TrainingExample) error {
	if ex.AddedAt.IsZero() {
		ex.AddedAt = time.Now().UTC()
	}
	if ex.IsValidated && ex.ValidatedAt == nil {
		at := ex.AddedAt
		ex.ValidatedAt = &at
	}

	query := r.db.Rebind(`
		INSERT INTO training_data (content, category_id, is_validated, added_at, validated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowContext(ctx, query,
		ex.Content, ex.CategoryID, ex.IsValidated, ex.AddedAt, ex.ValidatedAt,
	).Scan(&ex.ID)
	if err != nil {
		return fmt.Errorf("failed to create training example: %w", err)
	}
	return nil
}
