package projects

import (
	"github.com/designpulse/feedback-backend/internal/apps"
	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

// Plugin implements apps.Plugin for design projects, screens and feedback
// queries: the resources whose counts the entitlement ceilings apply to.
type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) ID() string { return "projects" }

func (p *Plugin) Models() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.Screen{},
		&models.FeedbackQuery{},
	}
}

func (p *Plugin) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	svc := NewProjectService(deps.DB)
	handler := NewProjectHandler(svc, deps.Resolver)

	router.Post("/projects",
		deps.Gate.Require(string(entitlement.FeatureMaxProjects), (*entitlement.EffectiveEntitlement).CanCreateProject),
		handler.CreateProject)
	router.Get("/projects", handler.ListProjects)
	router.Delete("/projects/:id", handler.DeleteProject)
	router.Post("/projects/:id/screens", handler.AddScreen)

	router.Post("/screens/:id/queries",
		deps.Gate.Require(string(entitlement.FeatureMaxQueries), (*entitlement.EffectiveEntitlement).CanCreateFeedbackQuery),
		handler.CreateQuery)
	router.Get("/screens/:id/queries", handler.ListQueries)
}
