package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/procurekit/procurement-service/internal/api/http/handlers"
	"github.com/procurekit/procurement-service/internal/auth"
	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	Notifications  *handlers.NotificationsHandler
	Profiles       *handlers.ProfilesHandler
	Operations     *handlers.OperationsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	CronSecret     string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	app.Get("/cron/auto-close", auth.RequireCronSecret(cfg.CronSecret), cfg.Operations.AutoClose)

	app.Post("/auth/dev-login", cfg.Profiles.DevLogin)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Get("/auth/me", cfg.Profiles.Me)
	protected.Get("/auth/profiles", cfg.Profiles.ListProfiles)
	protected.Post("/auth/profiles/switch", cfg.Profiles.SwitchProfile)
	protected.Get("/flow-assignees", cfg.Profiles.FlowAssignees)
	protected.Get("/notifications", cfg.Notifications.Inbox)
	protected.Get("/items/lookup", auth.RequireAnyRole(domain.RoleRequester, domain.RoleSuperAdmin), cfg.Operations.LookupItem)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Get("/:id/approvals", cfg.Tickets.ListApprovals)
	tickets.Get("/:id/comments", cfg.Comments.ListComments)
	tickets.Post("/:id/comments", cfg.Comments.AddComment)
	tickets.Get("/:id/mention-users", cfg.Comments.MentionUsers)
}
