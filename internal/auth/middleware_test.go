package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/repository/memstore"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, *domain.StaffMember) {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()
	dealership := &domain.Dealership{TaxID: "1", LegalName: "D"}
	require.NoError(t, store.Dealerships().Create(ctx, dealership))
	member := &domain.StaffMember{Name: "Ana", Email: "ana@x.com", Tier: domain.TierManager, DealershipID: &dealership.ID}
	require.NoError(t, store.Staff().Create(ctx, member))

	tokens := NewTokenManager("secret", 5)
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	mw := NewAuthMiddleware(tokens, store.Staff())
	app.Get("/me", mw.Handle, RequireIdentity(), func(c *fiber.Ctx) error {
		identity, _ := IdentityFromContext(c)
		return c.JSON(fiber.Map{"id": identity.StaffID, "tier": identity.Tier, "dealership": *identity.DealershipID})
	})
	return app, tokens, member
}

func TestMiddlewareResolvesIdentity(t *testing.T) {
	app, tokens, member := newTestApp(t)
	token, _, err := tokens.GenerateToken(member.ID, member.Tier)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	app, tokens, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ghost, _, err := tokens.GenerateToken("missing", domain.TierAdministrator)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
