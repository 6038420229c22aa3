// Package directory wraps the remote directory service's REST API: user CRUD,
// group membership, the photo sub-resource, invitation issuance, and
// transactional mail. The service is an opaque external collaborator; every
// call is attempted exactly once, with no retry policy.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"membership/internal/config"

	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrUserNotFound        = errors.New("directory: user not found")
	ErrPhotoNotFound       = errors.New("directory: user has no photo")
	ErrAlreadyMember       = errors.New("directory: identity is already a group member")
	ErrDuplicateInvitation = errors.New("directory: an identity for this address already exists")
)

// Client talks to the directory service using an application token obtained
// through the OAuth2 client-credentials flow. The underlying oauth2 transport
// refreshes the token as needed.
type Client struct {
	baseURL           string
	inviteRedirectURL string
	httpClient        *http.Client
}

func NewClient(cfg config.DirectoryConfig) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	return &Client{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		inviteRedirectURL: cfg.InviteRedirectURL,
		httpClient:        cc.Client(context.Background()),
	}
}

// GetUser fetches a user record including the membership extension.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	url := fmt.Sprintf("%s/users/%s?$select=id,displayName,givenName,surname,mail,otherMails,%s", c.baseURL, id, ExtensionKey)

	resp, err := c.do(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory: get user failed, status code: %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("directory: decode user: %w", err)
	}
	return &user, nil
}

// UpdateUser applies a partial update to a user record.
func (c *Client) UpdateUser(ctx context.Context, id string, patch UserPatch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("directory: encode user patch: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("%s/users/%s", c.baseURL, id), bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("directory: update user failed, status code: %d", resp.StatusCode)
	}
	return nil
}

// DeleteUser permanently removes an identity from the directory.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/users/%s", c.baseURL, id), nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory: delete user failed, status code: %d", resp.StatusCode)
	}
	return nil
}

// GetUserPhoto fetches photo metadata and content. A user without a photo
// yields ErrPhotoNotFound, which callers typically swallow.
func (c *Client) GetUserPhoto(ctx context.Context, id string) (*Photo, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s/photo", c.baseURL, id), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPhotoNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory: get photo failed, status code: %d", resp.StatusCode)
	}

	var meta photoMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("directory: decode photo metadata: %w", err)
	}

	contentResp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s/photo/$value", c.baseURL, id), nil, "")
	if err != nil {
		return nil, err
	}
	defer contentResp.Body.Close()

	if contentResp.StatusCode == http.StatusNotFound {
		return nil, ErrPhotoNotFound
	}
	if contentResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory: get photo content failed, status code: %d", contentResp.StatusCode)
	}

	data, err := io.ReadAll(contentResp.Body)
	if err != nil {
		return nil, fmt.Errorf("directory: read photo content: %w", err)
	}

	return &Photo{
		Width:       meta.Width,
		Height:      meta.Height,
		ContentType: meta.MediaContentType,
		Data:        data,
	}, nil
}

// PutUserPhoto replaces the stored photo content.
func (c *Client) PutUserPhoto(ctx context.Context, id string, content []byte) error {
	resp, err := c.do(ctx, http.MethodPut, fmt.Sprintf("%s/users/%s/photo/$value", c.baseURL, id), bytes.NewReader(content), "image/jpeg")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("directory: put photo failed, status code: %d", resp.StatusCode)
	}
	return nil
}

// ListGroupMembers pages through the group's member list and accumulates all
// pages, in directory order.
func (c *Client) ListGroupMembers(ctx context.Context, groupID string) ([]User, error) {
	url := fmt.Sprintf("%s/groups/%s/members?$select=id,displayName,givenName,surname,mail,otherMails,%s", c.baseURL, groupID, ExtensionKey)

	var users []User
	for url != "" {
		resp, err := c.do(ctx, http.MethodGet, url, nil, "")
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("directory: list group members failed, status code: %d", resp.StatusCode)
		}

		var page userPage
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("directory: decode member page: %w", err)
		}
		resp.Body.Close()

		users = append(users, page.Value...)
		url = page.NextLink
	}

	return users, nil
}

// ListUserGroups returns the ids of every group the user belongs to,
// accumulated across all pages.
func (c *Client) ListUserGroups(ctx context.Context, userID string) ([]string, error) {
	url := fmt.Sprintf("%s/users/%s/memberOf", c.baseURL, userID)

	var ids []string
	for url != "" {
		resp, err := c.do(ctx, http.MethodGet, url, nil, "")
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("directory: list user groups failed, status code: %d", resp.StatusCode)
		}

		var page directoryObjectPage
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("directory: decode group page: %w", err)
		}
		resp.Body.Close()

		for _, obj := range page.Value {
			ids = append(ids, obj.ID)
		}
		url = page.NextLink
	}

	return ids, nil
}

// AddGroupMember adds a user to a group. Adding an existing member yields
// ErrAlreadyMember.
func (c *Client) AddGroupMember(ctx context.Context, groupID, userID string) error {
	ref := groupMemberRef{ODataID: fmt.Sprintf("%s/directoryObjects/%s", c.baseURL, userID)}
	body, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("directory: encode member ref: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/groups/%s/members/$ref", c.baseURL, groupID), bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(respBody), "already exist") {
		return ErrAlreadyMember
	}
	return fmt.Errorf("directory: add group member failed, status code: %d", resp.StatusCode)
}

// Invite pre-provisions an identity for an external email address. The
// directory's own invitation mail is suppressed; the caller sends its own.
// An address that already has an identity yields ErrDuplicateInvitation.
func (c *Client) Invite(ctx context.Context, email, displayName string) (*Invitation, error) {
	req := invitationRequest{
		InvitedUserEmailAddress: email,
		InvitedUserDisplayName:  displayName,
		InviteRedirectURL:       c.inviteRedirectURL,
		SendInvitationMessage:   false,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("directory: encode invitation: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/invitations", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil, ErrDuplicateInvitation
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory: invite failed, status code: %d", resp.StatusCode)
	}

	var invResp invitationResponse
	if err := json.NewDecoder(resp.Body).Decode(&invResp); err != nil {
		return nil, fmt.Errorf("directory: decode invitation: %w", err)
	}

	return &Invitation{
		ID:            invResp.ID,
		RedeemURL:     invResp.RedeemURL,
		Status:        invResp.Status,
		InvitedUserID: invResp.InvitedUser.ID,
	}, nil
}

// SendMail sends a message through the directory's mail-send capability on
// behalf of the sender identity.
func (c *Client) SendMail(ctx context.Context, senderID string, mail Mail) error {
	msg := mailMessage{
		Subject: mail.Subject,
		Body: mailBody{
			ContentType: "HTML",
			Content:     mail.HTMLBody,
		},
	}
	for _, to := range mail.To {
		msg.ToRecipients = append(msg.ToRecipients, mailRecipient{EmailAddress: mailAddress{Address: to}})
	}
	for _, att := range mail.Attachments {
		msg.Attachments = append(msg.Attachments, mailAttachment{
			ODataType:    "#directory.fileAttachment",
			Name:         att.Name,
			ContentType:  att.ContentType,
			ContentBytes: att.Content,
			IsInline:     att.ContentID != "",
			ContentID:    att.ContentID,
		})
	}

	body, err := json.Marshal(sendMailRequest{Message: msg, SaveToSentItems: false})
	if err != nil {
		return fmt.Errorf("directory: encode mail: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/users/%s/sendMail", c.baseURL, senderID), bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory: send mail failed, status code: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("directory: create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory: %s %s: %w", method, url, err)
	}
	return resp, nil
}
