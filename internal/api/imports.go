package api

import (
	"bytes"
	"errors"
	"io"
	"log/slog"

	"membership/internal/middleware"
	"membership/internal/ratelimit"
	"membership/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// ImportRoster takes an uploaded CSV roster, archives it, and invites every
// listed person. Row failures are counted, not fatal; a malformed file is
// rejected as a whole.
func (h *Handler) ImportRoster(c *fiber.Ctx) error {
	adminID, _ := c.Locals(middleware.SessionKeyUserID).(string)

	if err := h.limiter.CheckBulkImport(c.Context(), adminID); err != nil {
		if errors.Is(err, ratelimit.ErrTooManyAttempts) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many roster imports, try again later",
			})
		}
		slog.Error("Bulk import rate limit check failed", "error", err)
	}

	file, err := c.FormFile("roster")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing roster file",
		})
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("Failed to open uploaded roster", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read roster file",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Failed to read uploaded roster", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read roster file",
		})
	}

	// Archive the roster before processing so failed imports can be
	// replayed. Archiving trouble never blocks the invitations.
	key := storage.ImportKey(adminID)
	if err := h.archives.Store(c.Context(), key, bytes.NewReader(data), "text/csv"); err != nil {
		slog.Error("Failed to archive roster", "error", err, "key", key)
	}

	result, err := h.members.BulkInvite(c.Context(), bytes.NewReader(data))
	if err != nil {
		return h.domainError(c, err)
	}

	h.telemetry.RecordInvitations(c.Context(), int64(result.Invited), int64(result.Failed))
	slog.Info("Roster imported",
		"admin_id", adminID,
		"rows", result.Rows,
		"invited", result.Invited,
		"failed", result.Failed,
		"archive_key", key,
	)

	return c.JSON(fiber.Map{
		"rows":    result.Rows,
		"invited": result.Invited,
		"failed":  result.Failed,
	})
}
