package directory

import "time"

// ExtensionKey is the schema-extension attribute on a directory user that
// carries the membership-specific fields.
const ExtensionKey = "membership_member"

// User is a directory user record with the membership extension attached.
type User struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"displayName"`
	GivenName   string           `json:"givenName"`
	Surname     string           `json:"surname"`
	Mail        string           `json:"mail"`
	OtherMails  []string         `json:"otherMails"`
	Extension   *MemberExtension `json:"membership_member,omitempty"`
}

// MemberExtension mirrors the schema-less extension payload. The social
// fields are always written (null when cleared); the flag and expiration are
// omitted when unset so the directory keeps its stored value.
type MemberExtension struct {
	GitHubID           string     `json:"githubId"`
	TwitterID          string     `json:"twitterId"`
	BlogURL            string     `json:"blogUrl"`
	ExpirationDateTime *time.Time `json:"expirationDateTime,omitempty"`
	IsActive           *bool      `json:"isActive,omitempty"`
}

// UserPatch carries the writable subset of a user record. Nil fields are
// left untouched by the directory.
type UserPatch struct {
	DisplayName *string          `json:"displayName,omitempty"`
	GivenName   *string          `json:"givenName,omitempty"`
	Surname     *string          `json:"surname,omitempty"`
	Extension   *MemberExtension `json:"membership_member,omitempty"`
}

// Photo is a user's profile photo sub-resource, metadata plus content.
type Photo struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

type photoMetadata struct {
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	MediaContentType string `json:"@odata.mediaContentType"`
}

// Invitation is the directory's pre-provisioned identity for an external
// email address, redeemed through the returned URL.
type Invitation struct {
	ID            string `json:"id"`
	RedeemURL     string `json:"inviteRedeemUrl"`
	Status        string `json:"status"`
	InvitedUserID string `json:"-"`
}

type invitationRequest struct {
	InvitedUserEmailAddress string `json:"invitedUserEmailAddress"`
	InvitedUserDisplayName  string `json:"invitedUserDisplayName"`
	InviteRedirectURL       string `json:"inviteRedirectUrl"`
	SendInvitationMessage   bool   `json:"sendInvitationMessage"`
}

type invitationResponse struct {
	ID          string `json:"id"`
	RedeemURL   string `json:"inviteRedeemUrl"`
	Status      string `json:"status"`
	InvitedUser struct {
		ID string `json:"id"`
	} `json:"invitedUser"`
}

// Mail is a transactional message sent through the directory's mail-send
// capability on behalf of a configured sender identity.
type Mail struct {
	Subject     string
	HTMLBody    string
	To          []string
	Attachments []MailAttachment
}

// MailAttachment is an inline file attachment; ContentID is the cid referenced
// from the HTML body.
type MailAttachment struct {
	Name        string
	ContentType string
	Content     []byte
	ContentID   string
}

type sendMailRequest struct {
	Message         mailMessage `json:"message"`
	SaveToSentItems bool        `json:"saveToSentItems"`
}

type mailMessage struct {
	Subject      string           `json:"subject"`
	Body         mailBody         `json:"body"`
	ToRecipients []mailRecipient  `json:"toRecipients"`
	Attachments  []mailAttachment `json:"attachments,omitempty"`
}

type mailBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type mailRecipient struct {
	EmailAddress mailAddress `json:"emailAddress"`
}

type mailAddress struct {
	Address string `json:"address"`
}

type mailAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes []byte `json:"contentBytes"` // encoding/json emits base64 for []byte
	IsInline     bool   `json:"isInline"`
	ContentID    string `json:"contentId,omitempty"`
}

type userPage struct {
	Value    []User `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

type directoryObjectPage struct {
	Value []struct {
		ID string `json:"id"`
	} `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

type groupMemberRef struct {
	ODataID string `json:"@odata.id"`
}
