package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/opportunity-service/internal/auth"
	"github.com/spec-kit/opportunity-service/internal/config"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/repository"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

// BootstrapReport summarizes what a bootstrap run created.
type BootstrapReport struct {
	TokensCreated int
	AdminCreated  bool
	AdminID       string
}

// BootstrapService seeds the role token catalog and the first administrator.
type BootstrapService struct {
	tokens      repository.RoleTokenRepository
	staff       repository.StaffRepository
	credentials auth.CredentialStore
	cfg         config.BootstrapConfig
	logger      *zap.Logger
}

// NewBootstrapService constructs the service.
func NewBootstrapService(tokens repository.RoleTokenRepository, staff repository.StaffRepository, credentials auth.CredentialStore, cfg config.BootstrapConfig, logger *zap.Logger) *BootstrapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BootstrapService{tokens: tokens, staff: staff, credentials: credentials, cfg: cfg, logger: logger}
}

// Run is idempotent: tokens and the administrator are only inserted when absent.
func (b *BootstrapService) Run(ctx context.Context) (*BootstrapReport, error) {
	report := &BootstrapReport{}

	for _, record := range domain.RoleTokenCatalog() {
		created, err := b.tokens.EnsureToken(ctx, record)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if created {
			report.TokensCreated++
			b.logger.Info("role token created", zap.Int("id", record.ID), zap.String("token", string(record.Token)))
		}
	}

	admin, err := b.staff.GetByEmail(ctx, b.cfg.AdminEmail)
	switch {
	case err == nil:
		report.AdminID = admin.ID
		return report, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.MapError(err)
	}

	digest, err := b.credentials.Hash(b.cfg.AdminPassword)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	admin = &domain.StaffMember{
		Name:         b.cfg.AdminName,
		Email:        b.cfg.AdminEmail,
		PasswordHash: digest,
		Tier:         domain.TierAdministrator,
		Idle:         domain.IdleMarker{LastAssignedAt: time.Now()},
	}
	if err := b.staff.Create(ctx, admin); err != nil {
		// Another replica bootstrapped first.
		if errors.Is(err, repository.ErrUniqueViolation) {
			existing, getErr := b.staff.GetByEmail(ctx, b.cfg.AdminEmail)
			if getErr != nil {
				return nil, apperrors.MapError(getErr)
			}
			report.AdminID = existing.ID
			return report, nil
		}
		return nil, apperrors.MapError(err)
	}

	report.AdminCreated = true
	report.AdminID = admin.ID
	b.logger.Info("administrator created", zap.String("staff_id", admin.ID), zap.String("email", admin.Email))
	return report, nil
}
