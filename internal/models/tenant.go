package models

import "time"

// Tenant is an institute. Nothing it owns is visible to other tenants.
type Tenant struct {
	ID      uint    `json:"id" gorm:"primaryKey"`
	Name    string  `json:"name" gorm:"not null;size:200;uniqueIndex"`
	OwnerID *string `json:"owner_id" gorm:"size:36"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}
