package accounts

import (
	"github.com/gofiber/fiber/v2"
)

// GetFiberSession extracts the Session the protected-route middleware
// stored in locals. It is the fiber-native counterpart of
// GetRouterSession for apps that reach below the router adapter.
func GetFiberSession(c *fiber.Ctx, key string) (Session, error) {
	if key == "" {
		key = SessionKey
	}

	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	session, ok := raw.(Session)
	if !ok {
		return nil, ErrUnableToDecodeSession
	}

	return session, nil
}

// RequireFiberSession is a fiber middleware guard for routes mounted
// outside the router adapter. It rejects requests that reached the
// handler without a decoded session.
func RequireFiberSession(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := GetFiberSession(c, key); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}
		return c.Next()
	}
}
