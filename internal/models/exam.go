package models

import (
	"time"

	"gorm.io/datatypes"
)

// Exam is an exam definition owned by the catalog. Duration is in minutes.
type Exam struct {
	ID          uint                      `json:"id" gorm:"primaryKey"`
	TenantID    uint                      `json:"tenant_id" gorm:"not null;index"`
	Title       string                    `json:"title" gorm:"not null;size:200"`
	Description string                    `json:"description" gorm:"type:text"`
	SubjectID   uint                      `json:"subject_id" gorm:"not null;index"`
	CreatedBy   string                    `json:"created_by" gorm:"not null;size:36;index"`
	QuestionIDs datatypes.JSONSlice[uint] `json:"question_ids" gorm:"type:jsonb;not null"`
	Duration    int                       `json:"duration" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Exam) TableName() string {
	return "exams"
}

// AllowedTime is the configured duration as a time.Duration.
func (e *Exam) AllowedTime() time.Duration {
	return time.Duration(e.Duration) * time.Minute
}

// Includes reports whether questionID is part of the exam.
func (e *Exam) Includes(questionID uint) bool {
	for _, id := range e.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}
