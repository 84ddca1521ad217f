package events

import (
	"context"
	"time"
)

const (
	TopicAttemptStarted   = "attempt.started"
	TopicAttemptSubmitted = "attempt.submitted"
)

// EventPublisher publishes attempt lifecycle events. Delivery is best effort.
type EventPublisher interface {
	PublishAttemptStarted(ctx context.Context, event AttemptStartedEvent) error
	PublishAttemptSubmitted(ctx context.Context, event AttemptSubmittedEvent) error
	Close() error
}

type AttemptStartedEvent struct {
	AttemptID uint      `json:"attempt_id"`
	ExamID    uint      `json:"exam_id"`
	TenantID  uint      `json:"tenant_id"`
	StudentID string    `json:"student_id"`
	StartedAt time.Time `json:"started_at"`
	Deadline  time.Time `json:"deadline"`
}

type AttemptSubmittedEvent struct {
	AttemptID          uint      `json:"attempt_id"`
	ExamID             uint      `json:"exam_id"`
	TenantID           uint      `json:"tenant_id"`
	StudentID          string    `json:"student_id"`
	Score              int       `json:"score"`
	TimeTakenMs        int64     `json:"time_taken_ms"`
	LateSubmission     bool      `json:"late_submission"`
	MissingQuestionIDs []uint    `json:"missing_question_ids,omitempty"`
	SubmittedAt        time.Time `json:"submitted_at"`
}
