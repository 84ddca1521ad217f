package services

import (
	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
)

func requireStaff(caller auth.Identity, resourceID uint, resource, action string) error {
	if !caller.Role.IsStaff() {
		return NewPermissionError(caller.UserID, resourceID, resource, action, "insufficient role permissions")
	}
	return nil
}

// canModify lets teachers change only what they authored. HODs and admins manage the whole tenant.
func canModify(caller auth.Identity, createdBy string) bool {
	switch caller.Role {
	case models.RoleHOD, models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return caller.UserID == createdBy
	default:
		return false
	}
}

// creatableRoles lists which account roles each role may register
var creatableRoles = map[models.UserRole][]models.UserRole{
	models.RoleAdmin:   {models.RoleHOD, models.RoleTeacher, models.RoleStudent},
	models.RoleHOD:     {models.RoleTeacher, models.RoleStudent},
	models.RoleTeacher: {models.RoleStudent},
}

func canCreateRole(creator, target models.UserRole) bool {
	for _, r := range creatableRoles[creator] {
		if r == target {
			return true
		}
	}
	return false
}
