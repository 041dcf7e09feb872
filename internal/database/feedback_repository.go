package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yaroing/feedback-platform/internal/domain"
)

// FeedbackUpdate is the write-back of one automatic classification.
type FeedbackUpdate struct {
	FeedbackID int64
	// CategoryID is written when set.
	CategoryID *int64
	// Priority is written when set.
	Priority *domain.Priority
	// Log is appended when set.
	Log          *domain.FeedbackLog
	ClassifiedAt time.Time
}

// FeedbackRepository handles database operations for feedback items and their logs.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// ListUnclassified returns up to limit feedback items that have not been through
// automatic classification yet, oldest first.
func (r *FeedbackRepository) ListUnclassified(ctx context.Context, limit int) ([]domain.Feedback, error) {
	items := make([]domain.Feedback, 0)
	query := r.db.Rebind(`
		SELECT id, content, category_id, priority, status, created_at
		FROM feedback
		WHERE auto_classified_at IS NULL
		ORDER BY created_at, id
		LIMIT ?
	`)

	if err := r.db.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list unclassified feedback: %w", err)
	}
	return items, nil
}

// ListCategorized returns the content of every categorized feedback item, labelled with
// its category. The ID of each example is the feedback id.
func (r *FeedbackRepository) ListCategorized(ctx context.Context) ([]domain.TrainingExample, error) {
	examples := make([]domain.TrainingExample, 0)
	query := `
		SELECT f.id, f.content, f.category_id, c.name AS category_name, f.created_at AS added_at
		FROM feedback f
		JOIN categories c ON c.id = f.category_id
		ORDER BY f.id
	`

	if err := r.db.SelectContext(ctx, &examples, query); err != nil {
		return nil, fmt.Errorf("failed to list categorized feedback: %w", err)
	}
	return examples, nil
}

// Create inserts a feedback item.
func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	// SQLite orders timestamps as text, so every row is stored in UTC.
	f.CreatedAt = f.CreatedAt.UTC()
	if f.Priority == "" {
		f.Priority = domain.PriorityMedium
	}
	if f.Status == "" {
		f.Status = "new"
	}

	query := r.db.Rebind(`
		INSERT INTO feedback (content, category_id, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowContext(ctx, query, f.Content, f.CategoryID, f.Priority, f.Status, f.CreatedAt).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// ApplyClassification writes the category, priority, and log of u in one transaction
// and marks the item as processed.
func (r *FeedbackRepository) ApplyClassification(ctx context.Context, u FeedbackUpdate) error {
	if u.ClassifiedAt.IsZero() {
		u.ClassifiedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	sets := []string{"auto_classified_at = ?"}
	args := []any{u.ClassifiedAt}
	if u.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *u.CategoryID)
	}
	if u.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *u.Priority)
	}
	args = append(args, u.FeedbackID)

	query := tx.Rebind(`UPDATE feedback SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if err = expectOneRow(result, u.FeedbackID); err != nil {
		return err
	}

	if u.Log != nil {
		u.Log.FeedbackID = u.FeedbackID
		if err = insertLog(ctx, tx, u.Log); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feedback update: %w", err)
	}
	return nil
}

// ListLogs returns the audit entries of feedbackID, oldest first.
func (r *FeedbackRepository) ListLogs(ctx context.Context, feedbackID int64) ([]domain.FeedbackLog, error) {
	logs := make([]domain.FeedbackLog, 0)
	query := r.db.Rebind(`
		SELECT id, feedback_id, action, details, created_at
		FROM feedback_logs WHERE feedback_id = ? ORDER BY id
	`)

	if err := r.db.SelectContext(ctx, &logs, query, feedbackID); err != nil {
		return nil, fmt.Errorf("failed to list feedback logs: %w", err)
	}
	return logs, nil
}

// queryer is satisfied by *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func insertLog(ctx context.Context, q queryer, entry *domain.FeedbackLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := q.Rebind(`
		INSERT INTO feedback_logs (feedback_id, action, details, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	err := q.QueryRowxContext(ctx, query, entry.FeedbackID, entry.Action, entry.Details, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert feedback log: %w", err)
	}
	return nil
}
