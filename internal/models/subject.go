package models

import "time"

type Subject struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	TenantID    uint    `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_subjects_tenant_code"`
	Name        string  `json:"name" gorm:"not null;size:200"`
	Code        string  `json:"code" gorm:"not null;size:50;uniqueIndex:idx_subjects_tenant_code"`
	Description *string `json:"description" gorm:"type:text"`
	CreatedBy   string  `json:"created_by" gorm:"not null;size:36;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subject) TableName() string {
	return "subjects"
}
