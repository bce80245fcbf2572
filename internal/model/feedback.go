package model

import "time"

type FeedbackStatus string

const (
	FeedbackPending   FeedbackStatus = "PENDING"
	FeedbackProcessed FeedbackStatus = "PROCESSED"
)

// Feedback is a message from a user to the operators.
type Feedback struct {
	ID          uint64         `json:"id"`
	UserID      string         `json:"user_id"`
	Content     string         `json:"content"`
	Type        string         `json:"type"`
	Status      FeedbackStatus `json:"status"`
	Response    *string        `json:"response,omitempty"`
	ProcessorID *string        `json:"processor_id,omitempty"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}
