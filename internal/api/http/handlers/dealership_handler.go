package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/opportunity-service/internal/api/dto"
	"github.com/spec-kit/opportunity-service/internal/service"
)

// DealershipHandler exposes administrator dealership management.
type DealershipHandler struct {
	service *service.DealershipService
}

// NewDealershipHandler constructs handler.
func NewDealershipHandler(dealerships *service.DealershipService) *DealershipHandler {
	return &DealershipHandler{service: dealerships}
}

// List GET /api/v1/dealerships.
func (h *DealershipHandler) List(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	dealerships, err := h.service.List(c.UserContext(), identity)
	if err != nil {
		return err
	}
	items := make([]dto.DealershipResponse, 0, len(dealerships))
	for i := range dealerships {
		items = append(items, dto.NewDealershipResponse(&dealerships[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/v1/dealerships/:id.
func (h *DealershipHandler) Get(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	dealership, err := h.service.Get(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDealershipResponse(dealership)})
}

// Create POST /api/v1/dealerships.
func (h *DealershipHandler) Create(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.DealershipRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	dealership, err := h.service.Create(c.UserContext(), identity, service.DealershipInput{TaxID: req.TaxID, LegalName: req.LegalName})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDealershipResponse(dealership)})
}

// Update PUT /api/v1/dealerships/:id.
func (h *DealershipHandler) Update(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.DealershipRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	dealership, err := h.service.Update(c.UserContext(), identity, c.Params("id"), service.DealershipInput{TaxID: req.TaxID, LegalName: req.LegalName})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDealershipResponse(dealership)})
}

// Delete DELETE /api/v1/dealerships/:id.
func (h *DealershipHandler) Delete(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
