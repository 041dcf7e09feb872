package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yaroing/feedback-platform/internal/domain"
)

// CategoryRepository handles database operations for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns every category in creation order.
func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	categories := make([]domain.Category, 0)
	query := `SELECT id, name, description, created_at FROM categories ORDER BY id`

	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// FindByName resolves a category by exact name, then by the first category whose name
// contains name case-insensitively.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	var c domain.Category
	query := r.db.Rebind(`SELECT id, name, description, created_at FROM categories WHERE name = ?`)

	err := r.db.GetContext(ctx, &c, query, name)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	// SQLite's LOWER only folds ASCII, so the contains match runs here.
	categories, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(name)
	for i := range categories {
		if strings.Contains(strings.ToLower(categories[i].Name), needle) {
			return &categories[i], nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`INSERT INTO categories (name, description, created_at) VALUES (?, ?, ?) RETURNING id`)

	if err := r.db.QueryRowContext(ctx, query, c.Name, c.Description, c.CreatedAt).Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}
