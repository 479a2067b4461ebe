package apps

import (
	"github.com/designpulse/feedback-backend/internal/config"
	"github.com/designpulse/feedback-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps carries what a plugin needs to mount its routes.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Gate     *middleware.EntitlementGate
	Resolver middleware.Resolver
}

// Plugin defines the interface every product area must implement.
type Plugin interface {
	// ID returns the unique plugin identifier, used in logs.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts plugin routes on the given Fiber group.
	// The group is already prefixed with /api/p and has JWT middleware applied.
	RegisterRoutes(router fiber.Router, deps Deps)
}

// AdminPlugin extends Plugin with admin-specific route registration.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts admin-only routes on the given Fiber group.
	// The group has both JWT and Admin middleware applied.
	RegisterAdminRoutes(router fiber.Router, deps Deps)
}
