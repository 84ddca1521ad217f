package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// casdoorParser is the part of the Casdoor client used to verify tokens
type casdoorParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorVerifier accepts Casdoor-issued tokens. The user's Casdoor organization
// names the tenant, so tenants must be registered under the same name.
type CasdoorVerifier struct {
	client  casdoorParser
	tenants repositories.TenantRepository
}

func NewCasdoorVerifier(cfg config.CasdoorConfig, tenants repositories.TenantRepository) *CasdoorVerifier {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)

	return &CasdoorVerifier{
		client:  client,
		tenants: tenants,
	}
}

func (v *CasdoorVerifier) Verify(ctx context.Context, token string) (auth.Identity, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	userID := claims.Id
	if userID == "" {
		return auth.Identity{}, fmt.Errorf("%w: missing user id", auth.ErrInvalidToken)
	}

	tenant, err := v.tenants.GetByName(ctx, claims.User.Owner)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return auth.Identity{}, fmt.Errorf("%w: unknown organization %q", auth.ErrInvalidToken, claims.User.Owner)
		}
		return auth.Identity{}, fmt.Errorf("failed to resolve organization: %w", err)
	}

	return auth.Identity{
		UserID:   userID,
		Role:     mapCasdoorRole(claims.User),
		TenantID: tenant.ID,
	}, nil
}

// mapCasdoorRole maps the Casdoor user type, then any assigned role names, to an internal role
func mapCasdoorRole(user casdoorsdk.User) models.UserRole {
	if user.IsAdmin {
		return models.RoleAdmin
	}

	names := []string{user.Type}
	for _, r := range user.Roles {
		if r != nil {
			names = append(names, r.Name)
		}
	}

	for _, name := range names {
		switch strings.ToLower(name) {
		case "admin", "administrator":
			return models.RoleAdmin
		case "hod", "head", "head-of-department":
			return models.RoleHOD
		case "teacher", "instructor", "educator":
			return models.RoleTeacher
		}
	}
	return models.RoleStudent
}
