package member

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"membership/internal/directory"
	"membership/internal/mail"
)

var (
	ErrDisplayNameRequired = errors.New("member: display name must not be blank")
	ErrPhotoTooLarge       = errors.New("member: profile photo exceeds 100 KiB")
	ErrPhotoNotJpeg        = errors.New("member: profile photo is not a jpeg")
)

// DirectoryClient is the subset of the directory API the member workflows
// depend on.
type DirectoryClient interface {
	GetUser(ctx context.Context, id string) (*directory.User, error)
	UpdateUser(ctx context.Context, id string, patch directory.UserPatch) error
	DeleteUser(ctx context.Context, id string) error
	GetUserPhoto(ctx context.Context, id string) (*directory.Photo, error)
	PutUserPhoto(ctx context.Context, id string, content []byte) error
	ListGroupMembers(ctx context.Context, groupID string) ([]directory.User, error)
	ListUserGroups(ctx context.Context, userID string) ([]string, error)
	AddGroupMember(ctx context.Context, groupID, userID string) error
	Invite(ctx context.Context, email, displayName string) (*directory.Invitation, error)
	SendMail(ctx context.Context, senderID string, mail directory.Mail) error
}

// Service implements the member workflows over the directory client. All
// operations issue each outbound call exactly once; there are no retries.
type Service struct {
	client         DirectoryClient
	membersGroupID string
	mailSenderID   string
	welcome        *mail.Template
	logger         *slog.Logger
}

func NewService(client DirectoryClient, membersGroupID, mailSenderID string, welcome *mail.Template, logger *slog.Logger) *Service {
	return &Service{
		client:         client,
		membersGroupID: membersGroupID,
		mailSenderID:   mailSenderID,
		welcome:        welcome,
		logger:         logger,
	}
}

// GetMember fetches a member record by id, including the profile photo when
// one is stored. Photo retrieval is best effort; its absence or failure never
// fails the member fetch.
func (s *Service) GetMember(ctx context.Context, id string) (Member, error) {
	user, err := s.client.GetUser(ctx, id)
	if err != nil {
		return Member{}, err
	}

	m := FromUser(user)

	photo, err := s.client.GetUserPhoto(ctx, id)
	if err != nil {
		if !errors.Is(err, directory.ErrPhotoNotFound) {
			s.logger.DebugContext(ctx, "Failed to fetch member photo", "member_id", id, "error", err)
		}
		return m, nil
	}

	m.Photo = &Photo{
		Width:       photo.Width,
		Height:      photo.Height,
		ContentType: photo.ContentType,
		Data:        photo.Data,
	}
	return m, nil
}

// GetAllMembers lists every identity in the members group, across all pages,
// sorted by surname. The directory cannot sort on surname server-side.
func (s *Service) GetAllMembers(ctx context.Context) ([]Member, error) {
	users, err := s.client.ListGroupMembers(ctx, s.membersGroupID)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(users))
	for i := range users {
		members = append(members, FromUser(&users[i]))
	}

	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Surname < members[j].Surname
	})

	return members, nil
}

// UpdateParams carries an edit to a member record. A nil Photo means the
// stored photo is left alone; IsActive and Expiration are applied only when
// non-nil.
type UpdateParams struct {
	ID          string
	DisplayName string
	GivenName   string
	Surname     string
	GitHubID    string
	TwitterID   string
	BlogURL     string
	IsActive    *bool
	Expiration  *time.Time
	Photo       []byte
}

// UpdateMember validates and applies an edit. Validation failures occur
// before any directory call. The name/extension patch and the photo replace
// are separate calls; a photo failure leaves the patch committed.
func (s *Service) UpdateMember(ctx context.Context, params UpdateParams) error {
	if strings.TrimSpace(params.DisplayName) == "" {
		return ErrDisplayNameRequired
	}

	if params.Photo != nil {
		if len(params.Photo) > MaxPhotoBytes {
			return ErrPhotoTooLarge
		}
		if !HasJpegHeader(params.Photo) {
			return ErrPhotoNotJpeg
		}
	}

	patch := directory.UserPatch{
		DisplayName: &params.DisplayName,
		GivenName:   &params.GivenName,
		Surname:     &params.Surname,
		Extension: &directory.MemberExtension{
			GitHubID:           params.GitHubID,
			TwitterID:          params.TwitterID,
			BlogURL:            params.BlogURL,
			IsActive:           params.IsActive,
			ExpirationDateTime: params.Expiration,
		},
	}

	if err := s.client.UpdateUser(ctx, params.ID, patch); err != nil {
		return fmt.Errorf("update member %s: %w", params.ID, err)
	}

	if len(params.Photo) > 0 {
		if err := s.client.PutUserPhoto(ctx, params.ID, params.Photo); err != nil {
			return fmt.Errorf("update member %s photo: %w", params.ID, err)
		}
	}

	return nil
}

// SetMemberActive flips the activity flag. Activating grants a year of
// membership; deactivating expires it immediately.
func (s *Service) SetMemberActive(ctx context.Context, id string, active bool) error {
	expiration := time.Now().UTC()
	if active {
		expiration = expiration.AddDate(1, 0, 0)
	}

	patch := directory.UserPatch{
		Extension: &directory.MemberExtension{
			IsActive:           &active,
			ExpirationDateTime: &expiration,
		},
	}

	if err := s.client.UpdateUser(ctx, id, patch); err != nil {
		return fmt.Errorf("set member %s active=%t: %w", id, active, err)
	}
	return nil
}
