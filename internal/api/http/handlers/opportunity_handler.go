package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/opportunity-service/internal/api/dto"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/service"
)

// OpportunityHandler exposes the opportunity lifecycle endpoints.
type OpportunityHandler struct {
	service  *service.OpportunityService
	location *time.Location
}

// NewOpportunityHandler constructs handler. Dates in payloads are read in loc.
func NewOpportunityHandler(opportunities *service.OpportunityService, loc *time.Location) *OpportunityHandler {
	return &OpportunityHandler{service: opportunities, location: loc}
}

type opportunityWrite func(ctx context.Context, identity *domain.Identity, in service.OpportunityInput) (*domain.Opportunity, error)

type opportunityEdit func(ctx context.Context, identity *domain.Identity, id string, in service.OpportunityInput) (*domain.Opportunity, error)

// List GET /api/v1/opportunities.
func (h *OpportunityHandler) List(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	items, err := h.service.List(c.UserContext(), identity, parseOpportunityFilters(c, true))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": opportunityResponses(items)})
}

// ListForDealership GET /api/v1/opportunities/dealership.
func (h *OpportunityHandler) ListForDealership(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	items, err := h.service.ListForCallerDealership(c.UserContext(), identity, parseOpportunityFilters(c, false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": opportunityResponses(items)})
}

// Get GET /api/v1/opportunities/:id.
func (h *OpportunityHandler) Get(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	opportunity, err := h.service.Get(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOpportunityResponse(opportunity)})
}

// Create POST /api/v1/opportunities.
func (h *OpportunityHandler) Create(c *fiber.Ctx) error {
	return h.write(c, h.service.Create)
}

// Intake POST /api/v1/opportunities/intake.
func (h *OpportunityHandler) Intake(c *fiber.Ctx) error {
	return h.write(c, h.service.SelfAssignIntake)
}

// Update PUT /api/v1/opportunities/:id.
func (h *OpportunityHandler) Update(c *fiber.Ctx) error {
	return h.edit(c, h.service.Update)
}

// UpdateInDealership PUT /api/v1/opportunities/dealership/:id.
func (h *OpportunityHandler) UpdateInDealership(c *fiber.Ctx) error {
	return h.edit(c, h.service.UpdateScopedToDealership)
}

// UpdateAssigned PUT /api/v1/opportunities/assigned/:id.
func (h *OpportunityHandler) UpdateAssigned(c *fiber.Ctx) error {
	return h.edit(c, h.service.UpdateScopedToAssignee)
}

// Delete DELETE /api/v1/opportunities/:id.
func (h *OpportunityHandler) Delete(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *OpportunityHandler) write(c *fiber.Ctx, op opportunityWrite) error {
	identity, in, err := h.readInput(c)
	if err != nil {
		return err
	}
	opportunity, err := op(c.UserContext(), identity, in)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOpportunityResponse(opportunity)})
}

func (h *OpportunityHandler) edit(c *fiber.Ctx, op opportunityEdit) error {
	identity, in, err := h.readInput(c)
	if err != nil {
		return err
	}
	opportunity, err := op(c.UserContext(), identity, c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOpportunityResponse(opportunity)})
}

func (h *OpportunityHandler) readInput(c *fiber.Ctx) (*domain.Identity, service.OpportunityInput, error) {
	identity, err := callerIdentity(c)
	if err != nil {
		return nil, service.OpportunityInput{}, err
	}
	var req dto.OpportunityRequest
	if err := bindBody(c, &req); err != nil {
		return nil, service.OpportunityInput{}, err
	}
	in, err := req.ToInput(h.location)
	if err != nil {
		return nil, service.OpportunityInput{}, err
	}
	return identity, in, nil
}

// parseOpportunityFilters reads listing filters. The dealership filter is only honoured
// on the unscoped listing.
func parseOpportunityFilters(c *fiber.Ctx, allowDealership bool) service.OpportunityListFilters {
	var filters service.OpportunityListFilters
	if allowDealership {
		filters.DealershipID = optionalQuery(c, "dealership_id")
	}
	filters.AssigneeID = optionalQuery(c, "assignee_id")
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.OpportunityStatus(strings.ToUpper(statusStr))
		filters.Status = &status
	}
	filters.Limit, filters.Offset = pagination(c)
	return filters
}

func opportunityResponses(items []domain.Opportunity) []dto.OpportunityResponse {
	out := make([]dto.OpportunityResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewOpportunityResponse(&items[i]))
	}
	return out
}
