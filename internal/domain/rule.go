package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is a feedback label used for routing and reporting.
type Category struct {
	ID          int64     `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
}

// KeywordRule is an operator-authored override mapping keywords to a category and,
// optionally, a priority.
type KeywordRule struct {
	ID              int64     `db:"id"               json:"id"`
	Name            string    `db:"name"             json:"name"`
	CategoryID      int64     `db:"category_id"      json:"category_id"`
	CategoryName    string    `db:"category_name"    json:"category_name"`
	Keywords        Keywords  `db:"keywords"         json:"keywords"`
	Priority        *Priority `db:"priority"         json:"priority,omitempty"`
	ConfidenceBoost float64   `db:"confidence_boost" json:"confidence_boost"`
	CreatedAt       time.Time `db:"created_at"       json:"created_at"`
}

// Keywords is an ordered keyword list stored as a JSON array.
type Keywords []string

// ParseKeywords splits a comma separated list and cleans it with NormalizeKeywords.
func ParseKeywords(csv string) Keywords {
	return NormalizeKeywords(strings.Split(csv, ","))
}

// NormalizeKeywords trims and lowercases each entry. Empty entries and repeats are
// dropped; first-seen order is kept.
func NormalizeKeywords(list []string) Keywords {
	seen := make(map[string]struct{})
	out := make(Keywords, 0, len(list))
	for _, part := range list {
		kw := strings.ToLower(strings.TrimSpace(part))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Value implements driver.Valuer.
func (k Keywords) Value() (driver.Value, error) {
	if k == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(k))
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (k *Keywords) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*k = Keywords{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.New("keywords: unsupported column type")
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode keywords: %w", err)
	}
	*k = out
	return nil
}
