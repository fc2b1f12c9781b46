package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/opportunity-service/internal/domain"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

func strPtr(v string) *string { return &v }

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func TestAuthorizeTierIsCumulative(t *testing.T) {
	cases := []struct {
		caller   domain.Tier
		required domain.Tier
		allowed  bool
	}{
		{domain.TierAdministrator, domain.TierAssistant, true},
		{domain.TierAdministrator, domain.TierAdministrator, true},
		{domain.TierOwner, domain.TierManager, true},
		{domain.TierManager, domain.TierOwner, false},
		{domain.TierAssistant, domain.TierManager, false},
		{domain.TierAssistant, domain.TierAssistant, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.caller)+"->"+string(tc.required), func(t *testing.T) {
			err := Authorize(&domain.Identity{StaffID: "s", Tier: tc.caller}, tc.required)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, apperrors.CodeInsufficientTier, errorCode(t, err))
		})
	}
}

func TestAuthorizeChecksTierBeforeScope(t *testing.T) {
	caller := &domain.Identity{StaffID: "s", Tier: domain.TierAssistant, DealershipID: strPtr("d1")}
	err := Authorize(caller, domain.TierManager, SameDealership(caller, strPtr("d2")))
	assert.Equal(t, apperrors.CodeInsufficientTier, errorCode(t, err))
}

func TestAuthorizeScopeMismatch(t *testing.T) {
	manager := &domain.Identity{StaffID: "m", Tier: domain.TierManager, DealershipID: strPtr("d1")}

	assert.NoError(t, Authorize(manager, domain.TierManager, SameDealership(manager, strPtr("d1"))))

	err := Authorize(manager, domain.TierManager, SameDealership(manager, strPtr("d2")))
	assert.Equal(t, apperrors.CodeScopeMismatch, errorCode(t, err))
	assert.True(t, apperrors.IsForbidden(err))

	err = Authorize(manager, domain.TierManager, SameDealership(manager, nil))
	assert.Equal(t, apperrors.CodeScopeMismatch, errorCode(t, err))
}

func TestSameDealershipRequiresCallerDealership(t *testing.T) {
	admin := &domain.Identity{StaffID: "a", Tier: domain.TierAdministrator}
	assert.False(t, SameDealership(admin, strPtr("d1")).Holds)
}

func TestIsAssignee(t *testing.T) {
	assistant := &domain.Identity{StaffID: "a1", Tier: domain.TierAssistant}
	assert.True(t, IsAssignee(assistant, strPtr("a1")).Holds)
	assert.False(t, IsAssignee(assistant, strPtr("a2")).Holds)
	assert.False(t, IsAssignee(assistant, nil).Holds)
}

func TestAuthorizeWithoutIdentity(t *testing.T) {
	err := RequireTier(nil, domain.TierAssistant)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(t, err))
}
