package domain

import "time"

// TrainingExample is a labelled text. Only validated examples are used for training.
type TrainingExample struct {
	ID           int64      `db:"id"            json:"id"`
	Content      string     `db:"content"       json:"content"`
	CategoryID   int64      `db:"category_id"   json:"category_id"`
	CategoryName string     `db:"category_name" json:"category_name"`
	IsValidated  bool       `db:"is_validated"  json:"is_validated"`
	AddedAt      time.Time  `db:"added_at"      json:"added_at"`
	ValidatedAt  *time.Time `db:"validated_at"  json:"validated_at,omitempty"`
}

// Feedback is a submitted feedback item awaiting or holding a classification.
type Feedback struct {
	ID         int64     `db:"id"          json:"id"`
	Content    string    `db:"content"     json:"content"`
	CategoryID *int64    `db:"category_id" json:"category_id,omitempty"`
	Priority   Priority  `db:"priority"    json:"priority"`
	Status     string    `db:"status"      json:"status"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

// FeedbackLogActionCategorized is the log action written after auto-classification.
const FeedbackLogActionCategorized = "categorized"

// FeedbackLog is an audit entry attached to a feedback item.
type FeedbackLog struct {
	ID         int64     `db:"id"          json:"id"`
	FeedbackID int64     `db:"feedback_id" json:"feedback_id"`
	Action     string    `db:"action"      json:"action"`
	Details    string    `db:"details"     json:"details"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}
