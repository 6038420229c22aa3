package member

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"membership/internal/directory"
)

var (
	ErrMemberIDRequired = errors.New("member: member id must not be blank")
	ErrEmailRequired    = errors.New("member: email address must not be blank")

	// ErrMemberAlreadyExists is returned when the new address already has an
	// identity in the directory. The old identity is left untouched.
	ErrMemberAlreadyExists = errors.New("member: an account for this email address already exists")
)

// ChangeEmail replaces a member's identity: the directory treats a sign-in
// address as immutable, so a new identity is invited at the new address, the
// member attributes and group memberships are copied over, and the old
// identity is deleted. Returns the new identity's id; callers holding the old
// id (a session, say) must switch to it.
//
// There is no rollback. A failure after the invitation leaves both identities
// live and is surfaced for manual cleanup.
func (s *Service) ChangeEmail(ctx context.Context, id, newEmail string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", ErrMemberIDRequired
	}
	if strings.TrimSpace(newEmail) == "" {
		return "", ErrEmailRequired
	}

	old, err := s.GetMember(ctx, id)
	if err != nil {
		return "", fmt.Errorf("fetch member %s: %w", id, err)
	}

	newID, err := s.InviteMember(ctx, old.DisplayName, old.GivenName, newEmail)
	if err != nil {
		if errors.Is(err, directory.ErrDuplicateInvitation) {
			return "", ErrMemberAlreadyExists
		}
		return "", fmt.Errorf("invite %s: %w", newEmail, err)
	}

	params := UpdateParams{
		ID:          newID,
		DisplayName: old.DisplayName,
		GivenName:   old.GivenName,
		Surname:     old.Surname,
		GitHubID:    old.GitHubID,
		TwitterID:   old.TwitterID,
		BlogURL:     old.BlogURL,
		IsActive:    &old.IsActive,
	}
	if !old.Expiration.IsZero() {
		expiration := old.Expiration
		params.Expiration = &expiration
	}
	if old.Photo != nil && len(old.Photo.Data) > 0 {
		params.Photo = old.Photo.Data
	}

	if err := s.UpdateMember(ctx, params); err != nil {
		return "", fmt.Errorf("copy member attributes to %s: %w", newID, err)
	}

	groups, err := s.client.ListUserGroups(ctx, id)
	if err != nil {
		return "", fmt.Errorf("list groups of %s: %w", id, err)
	}

	copied := 0
	for _, groupID := range groups {
		// The members group was already added by the invitation step.
		if groupID == s.membersGroupID {
			continue
		}
		if err := s.client.AddGroupMember(ctx, groupID, newID); err != nil {
			return "", fmt.Errorf("copy group %s to %s: %w", groupID, newID, err)
		}
		copied++
	}

	if err := s.client.DeleteUser(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete old identity after email change, manual cleanup required",
			"old_id", id, "new_id", newID, "groups_copied", copied, "error", err)
		return "", fmt.Errorf("delete old identity %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Member email changed", "old_id", id, "new_id", newID, "groups_copied", copied)

	return newID, nil
}
