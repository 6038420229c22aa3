package member

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"membership/internal/directory"
)

var (
	// ErrMissingBOM is returned when an import file does not begin with the
	// UTF-8 byte order mark. Import is refused before any row is read.
	ErrMissingBOM = errors.New("member: csv import file is missing the UTF-8 byte order mark")

	ErrMissingColumns = errors.New("member: csv header must contain FirstName, LastName and EMail columns")
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// BulkResult summarizes one import run.
type BulkResult struct {
	Rows    int `json:"rows"`
	Invited int `json:"invited"`
	Failed  int `json:"failed"`
}

// InviteMember pre-provisions an identity for the address, adds it to the
// members group, and sends the templated welcome mail. A group-add failure
// (typically an identity that is already a member) is logged and skips the
// mail, but is not an error; only the invitation itself can fail the call.
func (s *Service) InviteMember(ctx context.Context, displayName, firstName, email string) (string, error) {
	inv, err := s.client.Invite(ctx, email, displayName)
	if err != nil {
		return "", err
	}

	if err := s.client.AddGroupMember(ctx, s.membersGroupID, inv.InvitedUserID); err != nil {
		s.logger.WarnContext(ctx, "Failed to add invited identity to members group, skipping welcome mail",
			"email", email, "user_id", inv.InvitedUserID, "error", err)
		return inv.InvitedUserID, nil
	}

	msg := directory.Mail{
		Subject:     s.welcome.Subject,
		HTMLBody:    s.welcome.Render(inv.RedeemURL, firstName),
		To:          []string{email},
		Attachments: s.welcome.Attachments,
	}
	if err := s.client.SendMail(ctx, s.mailSenderID, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send welcome mail", "email", email, "error", err)
	}

	return inv.InvitedUserID, nil
}

// BulkInvite reads a CSV roster and invites each row in file order,
// sequentially. The file must carry a UTF-8 BOM; without it nothing is
// processed. A failing row is logged and skipped, never halting the run.
func (s *Service) BulkInvite(ctx context.Context, r io.Reader) (BulkResult, error) {
	var result BulkResult

	br := bufio.NewReader(r)
	bom, err := br.Peek(3)
	if err != nil || !bytes.Equal(bom, utf8BOM) {
		return result, ErrMissingBOM
	}
	if _, err := br.Discard(3); err != nil {
		return result, fmt.Errorf("member: discard BOM: %w", err)
	}

	cr := csv.NewReader(br)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return result, fmt.Errorf("member: read csv header: %w", err)
	}

	firstIdx, lastIdx, emailIdx := -1, -1, -1
	for i, col := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(col), "FirstName"):
			firstIdx = i
		case strings.EqualFold(strings.TrimSpace(col), "LastName"):
			lastIdx = i
		case strings.EqualFold(strings.TrimSpace(col), "EMail"):
			emailIdx = i
		}
	}
	if firstIdx < 0 || lastIdx < 0 || emailIdx < 0 {
		return result, ErrMissingColumns
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Rows++
			result.Failed++
			s.logger.WarnContext(ctx, "Skipping malformed csv row", "row", result.Rows, "error", err)
			continue
		}

		result.Rows++

		first := strings.TrimSpace(record[firstIdx])
		last := strings.TrimSpace(record[lastIdx])
		email := strings.TrimSpace(record[emailIdx])
		displayName := first + " " + last

		if _, err := s.InviteMember(ctx, displayName, first, email); err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "Failed to invite member, continuing with next row",
				"row", result.Rows, "email", email, "error", err)
			continue
		}

		result.Invited++
	}

	return result, nil
}
