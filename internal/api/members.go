package api

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"membership/internal/member"
	"membership/internal/middleware"
	"membership/internal/model"
	"membership/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListMembers(c *fiber.Ctx) error {
	members, err := h.members.GetAllMembers(c.Context())
	if err != nil {
		return h.domainError(c, err)
	}

	views := make([]model.MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, model.NewMemberView(m))
	}

	return c.JSON(fiber.Map{
		"members": views,
		"count":   len(views),
	})
}

func (h *Handler) GetMember(c *fiber.Ctx) error {
	m, err := h.members.GetMember(c.Context(), c.Params("id"))
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(model.NewMemberView(m))
}

func (h *Handler) GetMemberPhoto(c *fiber.Ctx) error {
	m, err := h.members.GetMember(c.Context(), c.Params("id"))
	if err != nil {
		return h.domainError(c, err)
	}
	if m.Photo == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member has no photo",
		})
	}

	c.Set(fiber.HeaderContentType, m.Photo.ContentType)
	return c.Send(m.Photo.Data)
}

func (h *Handler) UpdateMember(c *fiber.Ctx) error {
	var req model.UpdateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	params := member.UpdateParams{
		ID:          c.Params("id"),
		DisplayName: req.DisplayName,
		GivenName:   req.GivenName,
		Surname:     req.Surname,
		GitHubID:    req.GitHubID,
		TwitterID:   req.TwitterID,
		BlogURL:     req.BlogURL,
		IsActive:    req.IsActive,
	}
	if req.Expiration != "" {
		expiration, err := time.Parse("2006-01-02", req.Expiration)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid expiration date",
			})
		}
		params.Expiration = &expiration
	}

	photo, err := readUploadedPhoto(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read uploaded photo",
		})
	}
	params.Photo = photo

	if err := h.members.UpdateMember(c.Context(), params); err != nil {
		h.telemetry.RecordMemberUpdate(c.Context(), params.ID, false)
		return h.domainError(c, err)
	}
	h.telemetry.RecordMemberUpdate(c.Context(), params.ID, true)

	m, err := h.members.GetMember(c.Context(), params.ID)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(model.NewMemberView(m))
}

func (h *Handler) SetMemberActive(c *fiber.Ctx) error {
	var req model.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	id := c.Params("id")
	if err := h.members.SetMemberActive(c.Context(), id, req.Active); err != nil {
		return h.domainError(c, err)
	}

	slog.Info("Member activity changed", "member_id", id, "active", req.Active)

	m, err := h.members.GetMember(c.Context(), id)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(model.NewMemberView(m))
}

// ChangeMemberEmail replaces a member's identity: the new address is invited,
// the record and group memberships are copied over, and the old identity is
// deleted. When a member changes their own address the session is re-pointed
// at the new identity.
func (h *Handler) ChangeMemberEmail(c *fiber.Ctx) error {
	return h.changeEmail(c, c.Params("id"))
}

func (h *Handler) changeEmail(c *fiber.Ctx, oldID string) error {
	callerID, _ := c.Locals(middleware.SessionKeyUserID).(string)

	if err := h.limiter.CheckEmailChange(c.Context(), callerID); err != nil {
		if errors.Is(err, ratelimit.ErrTooManyAttempts) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many email changes, try again later",
			})
		}
		slog.Error("Email change rate limit check failed", "error", err)
	}

	var req model.ChangeEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	newID, err := h.members.ChangeEmail(c.Context(), oldID, req.NewEmail)
	if err != nil {
		h.telemetry.RecordEmailChange(c.Context(), false)
		return h.domainError(c, err)
	}
	h.telemetry.RecordEmailChange(c.Context(), true)

	// Re-point the authorization tuple at the new identity. The directory
	// work is done, so a failure here is only logged.
	if err := h.authz.MoveManager(c.Context(), oldID, newID); err != nil {
		slog.Error("Failed to move manager grant", "error", err, "old_id", oldID, "new_id", newID)
	}

	h.tokens.Remove(oldID)

	if callerID == oldID {
		sess, err := h.store.Get(c)
		if err == nil {
			sess.Set(middleware.SessionKeyUserID, newID)
			sess.Set(middleware.SessionKeyEmail, req.NewEmail)
			sess.Delete(middleware.SessionKeyToken)
			if err := sess.Save(); err != nil {
				slog.Error("Failed to save session after email change", "error", err)
			}
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":      newID,
		"message": "Invitation sent to the new address",
	})
}

// readUploadedPhoto returns the bytes of the optional multipart "photo" file,
// or nil when the request carries none.
func readUploadedPhoto(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("photo")
	if err != nil {
		return nil, nil
	}

	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
