package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoToken  = errors.New("invalid token in context")
	ErrNoClaims = errors.New("invalid claims")
	ErrNoSub    = errors.New("missing sub claim")
)

func claims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoToken
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrNoClaims
	}
	return mc, nil
}

// GetUserID extracts the user UUID from the sub claim of the validated JWT.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	mc, err := claims(c)
	if err != nil {
		return uuid.Nil, err
	}
	sub, ok := mc["sub"].(string)
	if !ok || sub == "" {
		return uuid.Nil, ErrNoSub
	}
	return uuid.Parse(sub)
}

// GetEmail returns the email claim, or "" when the token has none.
func GetEmail(c *fiber.Ctx) string {
	mc, err := claims(c)
	if err != nil {
		return ""
	}
	email, _ := mc["email"].(string)
	return email
}
