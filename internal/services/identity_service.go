package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// IdentityConfig controls token lifetimes and password hashing
type IdentityConfig struct {
	TokenTTL      time.Duration
	OwnerTokenTTL time.Duration
	BcryptCost    int
}

func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		TokenTTL:      time.Hour,
		OwnerTokenTTL: 7 * 24 * time.Hour,
		BcryptCost:    bcrypt.DefaultCost,
	}
}

type identityService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	tokens    *auth.TokenService
	config    IdentityConfig
}

func NewIdentityService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, tokens *auth.TokenService, config IdentityConfig) IdentityService {
	return &identityService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		tokens:    tokens,
		config:    config,
	}
}

// ===== TENANTS =====

// RegisterTenant creates the institute together with its HOD owner
func (s *identityService) RegisterTenant(ctx context.Context, req *models.RegisterTenantRequest) (*models.TokenResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	username := strings.TrimSpace(req.Username)

	s.logger.Info("Registering tenant", "name", name)

	exists, err := s.repo.Tenant().ExistsByName(ctx, name)
	if err != nil {
		return nil, storeError("failed to check tenant name", err)
	}
	if exists {
		return nil, ErrTenantNameTaken
	}

	taken, err := s.repo.User().ExistsByUsername(ctx, username)
	if err != nil {
		return nil, storeError("failed to check username", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := hashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	var owner *models.User
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		tenant := &models.Tenant{Name: name}
		if err := tx.Tenant().Create(ctx, tenant); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrTenantNameTaken
			}
			return err
		}

		owner = &models.User{
			TenantID:    tenant.ID,
			Name:        strings.TrimSpace(req.OwnerName),
			Username:    &username,
			Email:       normalizeEmail(req.Email),
			PhoneNumber: normalizePhone(req.PhoneNumber),
			Password:    hash,
			Role:        models.RoleHOD,
		}
		if err := tx.User().Create(ctx, owner); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrUsernameTaken
			}
			return err
		}

		return tx.Tenant().SetOwner(ctx, tenant.ID, owner.ID)
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, storeError("failed to register tenant", err)
	}

	s.logger.Info("Tenant registered", "tenant_id", owner.TenantID, "owner_id", owner.ID)
	return s.issue(owner, s.config.OwnerTokenTTL, "Institute registered successfully")
}

func (s *identityService) GetTenant(ctx context.Context, caller auth.Identity) (*models.Tenant, error) {
	tenant, err := s.repo.Tenant().GetByID(ctx, caller.TenantID)
	if err != nil {
		return nil, notFoundOr(err, ErrTenantNotFound, "failed to get tenant")
	}
	return tenant, nil
}

// ===== AUTHENTICATION =====

func (s *identityService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	if errs := s.validator.ValidateLogin(req); len(errs) > 0 {
		return nil, errs
	}

	candidates, err := s.repo.User().FindForLogin(ctx,
		strings.TrimSpace(req.Username),
		normalizeEmail(req.Email),
		strings.TrimSpace(req.PhoneNumber),
		req.TenantID)
	if err != nil {
		return nil, storeError("failed to find user", err)
	}

	// the same email may exist in several tenants
	for _, user := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) == nil {
			s.logger.Info("User logged in", "user_id", user.ID, "tenant_id", user.TenantID)
			return s.issue(user, s.config.TokenTTL, "Login successful")
		}
	}

	s.logger.Warn("Failed login", "candidates", len(candidates))
	return nil, ErrInvalidCredentials
}

// ===== USERS =====

func (s *identityService) RegisterUser(ctx context.Context, caller auth.Identity, req *models.RegisterUserRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !canCreateRole(caller.Role, req.Role) {
		return nil, NewPermissionError(caller.UserID, 0, "user", "create_"+string(req.Role), "insufficient role permissions")
	}

	email := normalizeEmail(req.Email)
	phone := normalizePhone(req.PhoneNumber)

	var phones []string
	if phone != nil {
		phones = []string{*phone}
	}
	existing, err := s.repo.User().FindByContacts(ctx, caller.TenantID, []string{email}, phones)
	if err != nil {
		return nil, storeError("failed to check user contacts", err)
	}
	if len(existing) > 0 {
		return nil, ErrUserContactTaken
	}

	hash, err := hashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		TenantID:    caller.TenantID,
		Name:        strings.TrimSpace(req.Name),
		Email:       email,
		PhoneNumber: phone,
		Password:    hash,
		Role:        req.Role,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrUserContactTaken
		}
		return nil, storeError("failed to create user", err)
	}

	s.logger.Info("User registered",
		"user_id", user.ID,
		"role", user.Role,
		"created_by", caller.UserID)
	return user, nil
}

func (s *identityService) GetUser(ctx context.Context, caller auth.Identity, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, caller.TenantID, id)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound, "failed to get user")
	}
	return user, nil
}

func (s *identityService) ListUsers(ctx context.Context, caller auth.Identity, filters repositories.UserFilters) ([]*models.User, int64, error) {
	if err := requireStaff(caller, 0, "user", "list"); err != nil {
		return nil, 0, err
	}

	users, total, err := s.repo.User().List(ctx, caller.TenantID, filters)
	if err != nil {
		return nil, 0, storeError("failed to list users", err)
	}
	return users, total, nil
}

// UpdateUser changes a user's profile within the caller's tenant. Passwords are not changed here.
func (s *identityService) UpdateUser(ctx context.Context, caller auth.Identity, id string, req *models.UserUpdateRequest) (*models.User, error) {
	if !caller.HasRole(models.RoleHOD, models.RoleAdmin) {
		return nil, NewPermissionError(caller.UserID, 0, "user", "update", "insufficient role permissions")
	}
	if req.Password != nil {
		return nil, ValidationErrors{*NewValidationError("password", "cannot be updated here", nil)}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Role != nil && *req.Role != user.Role {
		if !canCreateRole(caller.Role, *req.Role) || !canCreateRole(caller.Role, user.Role) {
			return nil, NewPermissionError(caller.UserID, 0, "user", "change_role", "insufficient role permissions")
		}
		tenant, err := s.GetTenant(ctx, caller)
		if err != nil {
			return nil, err
		}
		if tenant.OwnerID != nil && *tenant.OwnerID == id {
			return nil, NewPermissionError(caller.UserID, 0, "user", "change_role", "the institute owner keeps the hod role")
		}
		user.Role = *req.Role
	}

	var emails, phones []string
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = normalizeEmail(*req.Email)
		emails = append(emails, user.Email)
	}
	if req.PhoneNumber != nil {
		// an empty phone number clears it
		user.PhoneNumber = normalizePhone(req.PhoneNumber)
		if user.PhoneNumber != nil {
			phones = append(phones, *user.PhoneNumber)
		}
	}

	if len(emails) > 0 || len(phones) > 0 {
		existing, err := s.repo.User().FindByContacts(ctx, caller.TenantID, emails, phones)
		if err != nil {
			return nil, storeError("failed to check user contacts", err)
		}
		for _, other := range existing {
			if other.ID != user.ID {
				return nil, ErrUserContactTaken
			}
		}
	}

	if err := s.repo.User().Update(ctx, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrUserContactTaken
		}
		return nil, notFoundOr(err, ErrUserNotFound, "failed to update user")
	}

	s.logger.Info("User updated", "user_id", id, "updated_by", caller.UserID)
	return user, nil
}

func (s *identityService) DeleteUser(ctx context.Context, caller auth.Identity, id string) error {
	if !caller.HasRole(models.RoleHOD, models.RoleAdmin) {
		return NewPermissionError(caller.UserID, 0, "user", "delete", "insufficient role permissions")
	}
	if id == caller.UserID {
		return ValidationErrors{*NewValidationError("id", "cannot delete your own account", id)}
	}

	tenant, err := s.GetTenant(ctx, caller)
	if err != nil {
		return err
	}
	if tenant.OwnerID != nil && *tenant.OwnerID == id {
		return NewPermissionError(caller.UserID, 0, "user", "delete", "the institute owner cannot be deleted")
	}

	if err := s.repo.User().Delete(ctx, caller.TenantID, id); err != nil {
		return notFoundOr(err, ErrUserNotFound, "failed to delete user")
	}

	s.logger.Info("User deleted", "user_id", id, "deleted_by", caller.UserID)
	return nil
}

// ===== HELPERS =====

func (s *identityService) issue(user *models.User, ttl time.Duration, message string) (*models.TokenResponse, error) {
	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		UserID:   user.ID,
		Role:     user.Role,
		TenantID: user.TenantID,
	}, ttl)
	if err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		Message:   message,
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Role:      user.Role,
	}, nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*phone)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
