package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5
	MinOptions    = 2
)

// QuestionOption is one choice of a question. ID is the option's zero-based ordinal.
type QuestionOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	TenantID  uint   `json:"tenant_id" gorm:"not null;index"`
	SubjectID uint   `json:"subject_id" gorm:"not null;index"`
	CreatedBy string `json:"created_by" gorm:"not null;size:36;index"`

	Text             string                              `json:"text" gorm:"type:text;not null"`
	Options          datatypes.JSONSlice[QuestionOption] `json:"options" gorm:"type:jsonb;not null"`
	CorrectOptionIDs datatypes.JSONSlice[int]            `json:"correct_option_ids,omitempty" gorm:"type:jsonb;not null"`
	Difficulty       int                                 `json:"difficulty" gorm:"not null;default:1"`
	Chapter          *string                             `json:"chapter,omitempty" gorm:"size:200"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// ForStudent returns a copy without the correct option set.
func (q *Question) ForStudent() *Question {
	clone := *q
	clone.CorrectOptionIDs = nil
	return &clone
}
