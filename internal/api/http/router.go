package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/opportunity-service/internal/api/http/handlers"
	"github.com/spec-kit/opportunity-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Dealerships    *handlers.DealershipHandler
	Staff          *handlers.StaffHandler
	Opportunities  *handlers.OpportunityHandler
	AuthMiddleware *auth.AuthMiddleware
	// Gatherer backs /metrics. Nil skips the endpoint.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Auth.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireIdentity(), cfg.Auth.ChangePassword)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireIdentity())

	dealerships := api.Group("/dealerships")
	dealerships.Get("/", cfg.Dealerships.List)
	dealerships.Get("/:id", cfg.Dealerships.Get)
	dealerships.Post("/", cfg.Dealerships.Create)
	dealerships.Put("/:id", cfg.Dealerships.Update)
	dealerships.Delete("/:id", cfg.Dealerships.Delete)

	staff := api.Group("/staff")
	staff.Get("/", cfg.Staff.List)
	staff.Get("/dealership", cfg.Staff.ListInDealership)
	staff.Get("/:id", cfg.Staff.Get)
	staff.Post("/", cfg.Staff.Create)
	staff.Post("/dealership", cfg.Staff.RegisterInDealership)
	staff.Put("/dealership/:id", cfg.Staff.UpdateInDealership)
	staff.Put("/:id", cfg.Staff.Update)
	staff.Delete("/:id", cfg.Staff.Delete)

	opportunities := api.Group("/opportunities")
	opportunities.Get("/", cfg.Opportunities.List)
	opportunities.Get("/dealership", cfg.Opportunities.ListForDealership)
	opportunities.Get("/:id", cfg.Opportunities.Get)
	opportunities.Post("/", cfg.Opportunities.Create)
	opportunities.Post("/intake", cfg.Opportunities.Intake)
	opportunities.Put("/dealership/:id", cfg.Opportunities.UpdateInDealership)
	opportunities.Put("/assigned/:id", cfg.Opportunities.UpdateAssigned)
	opportunities.Put("/:id", cfg.Opportunities.Update)
	opportunities.Delete("/:id", cfg.Opportunities.Delete)
}
