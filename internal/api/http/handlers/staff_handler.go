package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/opportunity-service/internal/api/dto"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/service"
)

// StaffHandler exposes staff management endpoints.
type StaffHandler struct {
	staffService *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

// List GET /api/v1/staff.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	members, err := h.staffService.ListStaffMembers(c.UserContext(), identity, parseStaffListFilters(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponses(members)})
}

// ListInDealership GET /api/v1/staff/dealership.
func (h *StaffHandler) ListInDealership(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	members, err := h.staffService.ListInDealership(c.UserContext(), identity, parseStaffListFilters(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponses(members)})
}

// Get GET /api/v1/staff/:id.
func (h *StaffHandler) Get(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	member, err := h.staffService.GetStaffMember(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(member)})
}

// Create POST /api/v1/staff.
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.StaffCreateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	member, err := h.staffService.CreateStaffMember(c.UserContext(), identity, req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewStaffResponse(member)})
}

// RegisterInDealership POST /api/v1/staff/dealership.
func (h *StaffHandler) RegisterInDealership(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.StaffCreateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	member, err := h.staffService.RegisterInDealership(c.UserContext(), identity, req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewStaffResponse(member)})
}

// Update PUT /api/v1/staff/:id.
func (h *StaffHandler) Update(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.StaffUpdateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	member, err := h.staffService.UpdateStaffMember(c.UserContext(), identity, c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(member)})
}

// UpdateInDealership PUT /api/v1/staff/dealership/:id.
func (h *StaffHandler) UpdateInDealership(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.StaffUpdateRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	member, err := h.staffService.UpdateInDealership(c.UserContext(), identity, c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(member)})
}

// Delete DELETE /api/v1/staff/:id.
func (h *StaffHandler) Delete(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	if err := h.staffService.DeleteStaffMember(c.UserContext(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseStaffListFilters(c *fiber.Ctx) service.StaffListFilters {
	var filters service.StaffListFilters
	if tierStr := c.Query("tier"); tierStr != "" {
		if tier, ok := domain.ParseTier(tierStr); ok {
			filters.Tier = &tier
		}
	}
	filters.DealershipID = optionalQuery(c, "dealership_id")
	filters.Limit, filters.Offset = pagination(c)
	return filters
}

func staffResponses(members []domain.StaffMember) []dto.StaffResponse {
	items := make([]dto.StaffResponse, 0, len(members))
	for i := range members {
		items = append(items, dto.NewStaffResponse(&members[i]))
	}
	return items
}
