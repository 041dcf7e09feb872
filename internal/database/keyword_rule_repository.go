package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yaroing/feedback-platform/internal/domain"
)

// KeywordRuleRepository handles database operations for operator keyword rules.
type KeywordRuleRepository struct {
	db *sqlx.DB
}

// NewKeywordRuleRepository creates a new keyword rule repository.
func NewKeywordRuleRepository(db *sqlx.DB) *KeywordRuleRepository {
	return &KeywordRuleRepository{db: db}
}

// List returns every rule in creation order, which is the order rules compete in.
func (r *KeywordRuleRepository) List(ctx context.Context) ([]domain.KeywordRule, error) {
	rules := make([]domain.KeywordRule, 0)
	query := `
		SELECT r.id, r.name, r.category_id, c.name AS category_name, r.keywords, r.priority,
		       r.confidence_boost, r.created_at
		FROM keyword_rules r
		JOIN categories c ON c.id = r.category_id
		ORDER BY r.id
	`

	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("failed to list keyword rules: %w", err)
	}
	return rules, nil
}

// Create inserts a new rule.
func (r *KeywordRuleRepository) Create(ctx context.Context, rule *domain.KeywordRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	if rule.Keywords == nil {
		rule.Keywords = domain.Keywords{}
	}

	query := r.db.Rebind(`
		INSERT INTO keyword_rules (name, category_id, keywords, priority, confidence_boost, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowContext(ctx, query,
		rule.Name,
		rule.CategoryID,
		rule.Keywords,
		rule.Priority,
		rule.ConfidenceBoost,
		rule.CreatedAt,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("failed to create keyword rule: %w", err)
	}
	return nil
}

// Update rewrites the keywords, priority and boost of an existing rule.
func (r *KeywordRuleRepository) Update(ctx context.Context, rule *domain.KeywordRule) error {
	if rule.Keywords == nil {
		rule.Keywords = domain.Keywords{}
	}

	query := r.db.Rebind(`
		UPDATE keyword_rules SET keywords = ?, priority = ?, confidence_boost = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query, rule.Keywords, rule.Priority, rule.ConfidenceBoost, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to update keyword rule: %w", err)
	}
	return expectOneRow(result, rule.ID)
}
