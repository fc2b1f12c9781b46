package auth

import (
	"github.com/spec-kit/opportunity-service/internal/domain"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

// Scope is a named predicate evaluated after the tier check passes.
type Scope struct {
	Name  string
	Holds bool
}

// SameDealership holds when the caller belongs to the target dealership.
func SameDealership(identity *domain.Identity, targetDealershipID *string) Scope {
	holds := identity != nil && identity.HasDealership() &&
		targetDealershipID != nil && *identity.DealershipID == *targetDealershipID
	return Scope{Name: "same_dealership", Holds: holds}
}

// IsAssignee holds when the caller is the current assignee of the target.
func IsAssignee(identity *domain.Identity, targetAssigneeID *string) Scope {
	holds := identity != nil && targetAssigneeID != nil && *targetAssigneeID == identity.StaffID
	return Scope{Name: "is_assignee", Holds: holds}
}

// RequireTier checks only the tier, for operations that have no scope.
func RequireTier(identity *domain.Identity, required domain.Tier) error {
	return Authorize(identity, required)
}

// Authorize grants access when the caller's tier carries the token of required and every
// scope holds. Scopes are checked left to right, and only after the tier passes.
func Authorize(identity *domain.Identity, required domain.Tier, scopes ...Scope) error {
	if identity == nil {
		recordDecision(decisionUnauthenticated)
		return apperrors.NewUnauthorized("authentication required")
	}
	if !domain.PermissionsFor(identity.Tier).Has(required.Token()) {
		recordDecision(decisionInsufficientTier)
		return apperrors.NewInsufficientTier(map[string]any{
			"required": string(required),
			"actual":   string(identity.Tier),
		})
	}
	if err := RequireScope(scopes...); err != nil {
		return err
	}
	recordDecision(decisionAllowed)
	return nil
}

// RequireScope evaluates scopes alone, for callers that already passed the tier check and
// had to load the target before its scope could be known.
func RequireScope(scopes ...Scope) error {
	for _, scope := range scopes {
		if !scope.Holds {
			recordDecision(decisionScopeMismatch)
			return apperrors.NewScopeMismatch(map[string]any{"scope": scope.Name})
		}
	}
	return nil
}
