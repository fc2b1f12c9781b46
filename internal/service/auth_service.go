package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/opportunity-service/internal/auth"
	"github.com/spec-kit/opportunity-service/internal/config"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/repository"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

// AuthService coordinates staff login and password changes.
type AuthService struct {
	staff       repository.StaffRepository
	credentials auth.CredentialStore
	tokenMgr    *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, staff repository.StaffRepository, credentials auth.CredentialStore) *AuthService {
	return &AuthService{
		staff:       staff,
		credentials: credentials,
		tokenMgr:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// LoginStaff authenticates staff and returns a tier-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, string, time.Time, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := s.credentials.Verify(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, staff.Tier)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return staff, token, exp, nil
}

// ChangePassword verifies the current password before storing the new digest.
func (s *AuthService) ChangePassword(ctx context.Context, identity *domain.Identity, currentPassword, newPassword string) error {
	if identity == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if newPassword == "" {
		return apperrors.NewValidationError("new password required", nil)
	}
	staff, err := s.staff.GetByID(ctx, identity.StaffID)
	if err != nil {
		return notFoundOr(err, "staff", map[string]any{"staff_id": identity.StaffID})
	}
	if err := s.credentials.Verify(staff.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError("current password does not match", nil)
	}
	digest, err := s.credentials.Hash(newPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	staff.PasswordHash = digest
	if err := s.staff.Update(ctx, staff); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
