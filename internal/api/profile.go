package api

import (
	"membership/internal/member"
	"membership/internal/middleware"
	"membership/internal/model"

	"github.com/gofiber/fiber/v2"
)

// ShowProfile returns the signed-in member's own record.
func (h *Handler) ShowProfile(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.SessionKeyUserID).(string)

	m, err := h.members.GetMember(c.Context(), userID)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(model.NewMemberView(m))
}

// UpdateProfile lets a member edit their own record. The activity flag and
// expiration are staff-only and not accepted here.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.SessionKeyUserID).(string)

	var req model.UpdateProfileRequest
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

	photo, err := readUploadedPhoto(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read uploaded photo",
		})
	}

	params := member.UpdateParams{
		ID:          userID,
		DisplayName: req.DisplayName,
		GivenName:   req.GivenName,
		Surname:     req.Surname,
		GitHubID:    req.GitHubID,
		TwitterID:   req.TwitterID,
		BlogURL:     req.BlogURL,
		Photo:       photo,
	}

	if err := h.members.UpdateMember(c.Context(), params); err != nil {
		h.telemetry.RecordMemberUpdate(c.Context(), userID, false)
		return h.domainError(c, err)
	}
	h.telemetry.RecordMemberUpdate(c.Context(), userID, true)

	m, err := h.members.GetMember(c.Context(), userID)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(model.NewMemberView(m))
}

// ChangeOwnEmail is the self-service variant of ChangeMemberEmail.
func (h *Handler) ChangeOwnEmail(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.SessionKeyUserID).(string)
	return h.changeEmail(c, userID)
}
