package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleHOD     UserRole = "hod"
	RoleAdmin   UserRole = "admin"
)

// IsStaff reports whether the role may author content inside a tenant.
func (r UserRole) IsStaff() bool {
	return r == RoleTeacher || r == RoleHOD || r == RoleAdmin
}

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleHOD, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID          string   `json:"id" gorm:"primaryKey;size:36"`
	TenantID    uint     `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_users_tenant_email;uniqueIndex:idx_users_tenant_phone"`
	Name        string   `json:"name" gorm:"not null;size:100"`
	Username    *string  `json:"username,omitempty" gorm:"uniqueIndex;size:100"`
	Email       string   `json:"email" gorm:"not null;size:255;uniqueIndex:idx_users_tenant_email"`
	PhoneNumber *string  `json:"phone_number,omitempty" gorm:"size:20;uniqueIndex:idx_users_tenant_phone"`
	Password    string   `json:"-" gorm:"not null;size:100"`
	Role        UserRole `json:"role" gorm:"not null;size:20;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
