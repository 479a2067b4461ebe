package middleware

import (
	"log/slog"

	"github.com/designpulse/feedback-backend/internal/config"
	"github.com/designpulse/feedback-backend/internal/dto"
	"github.com/designpulse/feedback-backend/internal/identity"
	"github.com/designpulse/feedback-backend/internal/services"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtConfig(cfg))
}

// JWTOrAdminToken skips token validation when an X-Admin-Token header is
// present; AdminRequired then checks that header instead.
func JWTOrAdminToken(cfg *config.Config) fiber.Handler {
	jc := jwtConfig(cfg)
	jc.Filter = func(c *fiber.Ctx) bool {
		return cfg.AdminToken != "" && c.Get("X-Admin-Token") != ""
	}
	return jwtware.New(jc)
}

func jwtConfig(cfg *config.Config) jwtware.Config {
	return jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	}
}

// EnsureProfile creates the local user row for a token subject the first time
// it calls the API, so projects can reference their owner.
func EnsureProfile(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := identity.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if err := users.EnsureProfile(c.UserContext(), userID, identity.GetEmail(c)); err != nil {
			slog.Error("profile sync failed", "user_id", userID.String(), "action", "ensure_profile", "error", err.Error())
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: true, Message: "Service temporarily unavailable",
			})
		}
		return c.Next()
	}
}
