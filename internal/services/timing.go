package services

import (
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// Clock returns the current server time
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// Deadline is the moment after which a submission counts as late
func Deadline(exam *models.Exam, startedAt time.Time) time.Time {
	return startedAt.Add(exam.AllowedTime())
}
