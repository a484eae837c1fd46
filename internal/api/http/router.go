package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/triage-service/internal/api/http/handlers"
	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Portal         *handlers.PortalTicketsHandler
	Inbox          *handlers.InboxTicketsHandler
	Enrichment     *handlers.EnrichmentHandler
	Sla            *handlers.SlaHandler
	Staff          *handlers.StaffHandler
	Articles       *handlers.ArticlesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/agents/login", cfg.Auth.AgentLogin)
	authGroup.Post("/customers/register", cfg.Auth.CustomerRegister)
	authGroup.Post("/customers/login", cfg.Auth.CustomerLogin)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.ChangePassword)

	// Invitation acceptance happens before the agent has credentials.
	app.Post("/staff/invitations/accept", cfg.Staff.Accept)

	portal := app.Group("/portal", cfg.AuthMiddleware.Handle, auth.RequireCustomer())
	portal.Post("/tickets", cfg.Portal.CreateTicket)
	portal.Get("/tickets", cfg.Portal.ListTickets)
	portal.Get("/tickets/:id", cfg.Portal.GetTicket)
	portal.Post("/tickets/:id/messages", cfg.Portal.AddReply)
	portal.Post("/tickets/:id/close", cfg.Portal.CloseTicket)
	portal.Get("/articles", cfg.Articles.ListPublished)
	portal.Get("/articles/:slug", cfg.Articles.GetPublished)

	inbox := app.Group("/inbox", cfg.AuthMiddleware.Handle, auth.RequireAgentRole())
	inbox.Get("/tickets", cfg.Inbox.ListTickets)
	inbox.Get("/tickets/:id", cfg.Inbox.GetTicket)
	inbox.Get("/tickets/:id/sla", cfg.Inbox.GetTicketSla)
	inbox.Post("/tickets/:id/messages", cfg.Inbox.AddMessage)
	inbox.Patch("/tickets/:id/status", cfg.Inbox.UpdateStatus)
	inbox.Patch("/tickets/:id/priority", cfg.Inbox.UpdatePriority)
	inbox.Patch("/tickets/:id/assignee", cfg.Inbox.Assign)
	inbox.Post("/tickets/:id/enrich", cfg.Enrichment.Enrich)
	inbox.Get("/tickets/:id/suggestions", cfg.Enrichment.ListSuggestions)
	inbox.Get("/dashboard/stats", cfg.Inbox.Stats)

	inbox.Post("/articles", cfg.Articles.Create)
	inbox.Get("/articles", cfg.Articles.ListForAgents)
	inbox.Put("/articles/:id", cfg.Articles.Update)
	inbox.Patch("/articles/:id/publish", cfg.Articles.SetPublished)
	inbox.Delete("/articles/:id", cfg.Articles.Delete)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAgentRole(domain.AgentRoleAdmin))
	admin.Put("/sla/rules", cfg.Sla.UpsertRule)
	admin.Get("/sla/rules", cfg.Sla.ListRules)
	admin.Delete("/sla/rules/:priority", cfg.Sla.DeleteRule)
	admin.Post("/staff/invitations", cfg.Staff.Invite)
	admin.Get("/staff/invitations", cfg.Staff.ListInvitations)
	admin.Delete("/staff/agents/:id", cfg.Staff.DeactivateAgent)

	// The breach dashboard and roster are visible to any agent.
	inbox.Get("/sla/dashboard", cfg.Sla.Dashboard)
	inbox.Get("/agents", cfg.Staff.ListAgents)
}
