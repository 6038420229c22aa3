package api

import (
	"errors"
	"log/slog"
	"strings"

	"membership/internal/auth"
	"membership/internal/directory"
	"membership/internal/member"
	"membership/internal/middleware"
	"membership/internal/monitoring"
	"membership/internal/openfga"
	"membership/internal/ratelimit"
	"membership/internal/storage"
	"membership/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

type Handler struct {
	store     *session.Store
	members   *member.Service
	archives  storage.Storage
	auth      *auth.Authenticator
	tokens    *auth.TokenCache
	limiter   *ratelimit.RateLimiter
	authz     *openfga.AuthorizationService
	telemetry monitoring.Telemetry
	validator *validator.Validator
}

func NewHandler(
	store *session.Store,
	members *member.Service,
	archives storage.Storage,
	authenticator *auth.Authenticator,
	tokens *auth.TokenCache,
	limiter *ratelimit.RateLimiter,
	authz *openfga.AuthorizationService,
	telemetry monitoring.Telemetry,
	validator *validator.Validator,
) Handler {
	return Handler{
		store:     store,
		members:   members,
		archives:  archives,
		auth:      authenticator,
		tokens:    tokens,
		limiter:   limiter,
		authz:     authz,
		telemetry: telemetry,
		validator: validator,
	}
}

func (h *Handler) ShowHomePage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "membership",
		"links": fiber.Map{
			"members": "/members",
			"profile": "/profile",
			"login":   "/auth/login",
		},
	})
}

// Login starts the authorization-code sign-in flow against the directory's
// identity provider.
func (h *Handler) Login(c *fiber.Ctx) error {
	if err := h.limiter.CheckSignIn(c.Context(), c.IP()); err != nil {
		if errors.Is(err, ratelimit.ErrTooManyAttempts) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many sign-in attempts, try again later",
			})
		}
		slog.Error("Sign-in rate limit check failed", "error", err)
	}

	state, err := auth.RandomState()
	if err != nil {
		slog.Error("Failed to generate state", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	sess, err := h.store.Get(c)
	if err != nil {
		slog.Error("Failed to get session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}
	sess.Set(middleware.SessionKeyState, state)
	if err := sess.Save(); err != nil {
		slog.Error("Failed to save session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save session",
		})
	}

	return c.Redirect(h.auth.AuthCodeURL(state), fiber.StatusFound)
}

// Callback completes the sign-in flow: it verifies the state, exchanges the
// code, and populates the session from the ID-token claims.
func (h *Handler) Callback(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		slog.Error("Failed to get session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get session",
		})
	}

	expectedState, _ := sess.Get(middleware.SessionKeyState).(string)
	sess.Delete(middleware.SessionKeyState)
	if expectedState == "" || c.Query("state") != expectedState {
		slog.Warn("Sign-in state mismatch", "ip", c.IP())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sign-in state",
		})
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing authorization code",
		})
	}

	token, err := h.auth.Exchange(c.Context(), code)
	if err != nil {
		slog.Error("Code exchange failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Sign-in failed",
		})
	}

	claims, err := h.auth.ExtractClaims(token)
	if err != nil {
		slog.Error("Failed to extract claims", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Sign-in failed",
		})
	}

	sess.Set(middleware.SessionKeyUserID, claims.Subject)
	sess.Set(middleware.SessionKeyName, claims.Name)
	sess.Set(middleware.SessionKeyEmail, claims.Email)
	sess.Set(middleware.SessionKeyRoles, strings.Join(claims.Roles, ","))

	h.tokens.Put(claims.Subject, token)
	if data, err := auth.MarshalToken(token); err == nil {
		sess.Set(middleware.SessionKeyToken, string(data))
	}

	if err := sess.Save(); err != nil {
		slog.Error("Failed to save session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save session",
		})
	}

	if err := h.limiter.ResetAttempts(c.Context(), c.IP(), "signin"); err != nil {
		slog.Debug("Failed to reset sign-in attempts", "error", err)
	}

	slog.Info("User signed in", "user_id", claims.Subject, "ip", c.IP())

	if h.auth.IsAdmin(claims) {
		return c.Redirect("/members", fiber.StatusFound)
	}
	return c.Redirect("/profile", fiber.StatusFound)
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		slog.Error("Failed to get session", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to get session")
	}

	if userID, ok := sess.Get(middleware.SessionKeyUserID).(string); ok && userID != "" {
		h.tokens.Remove(userID)
		slog.Info("User signed out", "user_id", userID)
	}

	if err := sess.Destroy(); err != nil {
		slog.Error("Failed to destroy session", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to destroy session")
	}

	return c.Redirect("/", fiber.StatusFound)
}

// domainError translates service errors into HTTP responses. Validation
// failures map to 400, conflicts to 409, and anything unexpected from the
// directory to 502.
func (h *Handler) domainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, member.ErrDisplayNameRequired),
		errors.Is(err, member.ErrPhotoTooLarge),
		errors.Is(err, member.ErrPhotoNotJpeg),
		errors.Is(err, member.ErrMissingBOM),
		errors.Is(err, member.ErrMissingColumns),
		errors.Is(err, member.ErrMemberIDRequired),
		errors.Is(err, member.ErrEmailRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, member.ErrMemberAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, directory.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	default:
		slog.Error("Directory request failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Directory service request failed",
		})
	}
}
