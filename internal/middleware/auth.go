package middleware

import (
	"strings"

	"membership/internal/auth"
	"membership/internal/openfga"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Session keys shared between the auth handlers and the middleware.
const (
	SessionKeyUserID = "user_id"
	SessionKeyName   = "user_name"
	SessionKeyEmail  = "user_email"
	SessionKeyRoles  = "user_roles"
	SessionKeyToken  = "oauth_token"
	SessionKeyState  = "oauth_state"
)

// AuthenticatedSession redirects unauthenticated requests to the sign-in
// flow and exposes the user id and roles as locals.
func AuthenticatedSession(sessionStore *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := sessionStore.Get(c)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Session error")
		}
		userID, _ := sess.Get(SessionKeyUserID).(string)
		if userID == "" {
			return c.Redirect("/auth/login", fiber.StatusFound)
		}

		c.Locals(SessionKeyUserID, userID)
		if roles, ok := sess.Get(SessionKeyRoles).(string); ok {
			c.Locals(SessionKeyRoles, roles)
		}

		return c.Next()
	}
}

// RequireAdmin gates directory-management routes: the session must carry the
// configured admin role and OpenFGA must allow managing the member directory.
// Runs after AuthenticatedSession.
func RequireAdmin(adminRole string, authz *openfga.AuthorizationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals(SessionKeyRoles).(string)
		if !hasRole(roles, adminRole) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Administrator role required",
			})
		}

		userID, _ := c.Locals(SessionKeyUserID).(string)
		allowed, err := authz.CanManageMembers(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Authorization check failed",
			})
		}
		if !allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Not authorized to manage members",
			})
		}

		return c.Next()
	}
}

// RefreshToken keeps the signed-in user's OAuth token fresh on every access,
// writing it back to the session only when it materially changed. Runs after
// AuthenticatedSession.
func RefreshToken(sessionStore *session.Store, cache *auth.TokenCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(SessionKeyUserID).(string)
		if userID == "" {
			return c.Next()
		}

		sess, err := sessionStore.Get(c)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Session error")
		}

		// Rehydrate the cache from the session after a restart.
		if stored, ok := sess.Get(SessionKeyToken).(string); ok && stored != "" {
			if _, _, err := cache.Get(c.Context(), userID); err != nil {
				if token, err := auth.UnmarshalToken([]byte(stored)); err == nil {
					cache.Put(userID, token)
				}
			}
		}

		token, changed, err := cache.Get(c.Context(), userID)
		if err != nil {
			// Refresh failed; force a fresh sign-in.
			sess.Delete(SessionKeyUserID)
			sess.Delete(SessionKeyToken)
			if err := sess.Save(); err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Failed to save session")
			}
			return c.Redirect("/auth/login", fiber.StatusFound)
		}

		if changed {
			data, err := auth.MarshalToken(token)
			if err == nil {
				sess.Set(SessionKeyToken, string(data))
				if err := sess.Save(); err != nil {
					return c.Status(fiber.StatusInternalServerError).SendString("Failed to save session")
				}
			}
		}

		return c.Next()
	}
}

func hasRole(roles, role string) bool {
	for _, r := range strings.Split(roles, ",") {
		if strings.TrimSpace(r) == role {
			return true
		}
	}
	return false
}
