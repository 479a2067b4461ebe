package projects

import (
	"errors"

	"github.com/designpulse/feedback-backend/internal/dto"
	"github.com/designpulse/feedback-backend/internal/entitlement"
	"github.com/designpulse/feedback-backend/internal/identity"
	"github.com/designpulse/feedback-backend/internal/middleware"
	"github.com/designpulse/feedback-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ProjectHandler handles HTTP requests for projects, screens and queries.
type ProjectHandler struct {
	service  *ProjectService
	resolver middleware.Resolver
}

func NewProjectHandler(service *ProjectService, resolver middleware.Resolver) *ProjectHandler {
	return &ProjectHandler{service: service, resolver: resolver}
}

// CreateProject handles POST /api/p/projects
func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	project, err := h.service.CreateProject(c.UserContext(), userID, req.Name, req.Description)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// ListProjects handles GET /api/p/projects
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	projects, err := h.service.ListProjects(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(projects)
}

// DeleteProject handles DELETE /api/p/projects/:id
func (h *ProjectHandler) DeleteProject(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid project ID")
	}

	if err := h.service.DeleteProject(c.UserContext(), userID, projectID); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddScreen handles POST /api/p/projects/:id/screens. Linking a Figma node
// requires the figmaIntegration capability.
func (h *ProjectHandler) AddScreen(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid project ID")
	}

	var req struct {
		Name      string `json:"name"`
		ImageURL  string `json:"image_url"`
		FigmaNode string `json:"figma_node"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.FigmaNode != "" {
		ent, err := h.resolver.GetEffectiveEntitlement(c.UserContext(), userID)
		if err != nil {
			return middleware.EntitlementFailure(c, err)
		}
		if !entitlement.Allowed(ent, nil, (*entitlement.EffectiveEntitlement).CanUseFigmaIntegration) {
			return forbidden(c, "Your plan does not include the Figma integration")
		}
	}

	screen, err := h.service.AddScreen(c.UserContext(), userID, projectID, req.Name, req.ImageURL, req.FigmaNode)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(screen)
}

// CreateQuery handles POST /api/p/screens/:id/queries. The route is gated on
// the query ceiling; the analyzer must also be in the caller's list.
func (h *ProjectHandler) CreateQuery(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	screenID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid screen ID")
	}

	var req struct {
		Analyzer string `json:"analyzer"`
		Prompt   string `json:"prompt"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !middleware.FromContext(c).CanUseAnalyzer(req.Analyzer) {
		return forbidden(c, "Analyzer "+req.Analyzer+" is not available on your plan")
	}

	query, err := h.service.CreateQuery(c.UserContext(), userID, screenID, req.Analyzer, req.Prompt)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(query)
}

// ListQueries handles GET /api/p/screens/:id/queries
func (h *ProjectHandler) ListQueries(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	screenID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid screen ID")
	}

	queries, err := h.service.ListQueries(c.UserContext(), userID, screenID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(queries)
}

func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return badRequest(c, err.Error())
	case errors.Is(err, services.ErrProjectNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Project not found"})
	case errors.Is(err, services.ErrScreenNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Screen not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: true, Message: msg})
}
