package member_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"membership/internal/directory"
	"membership/internal/mail"
	"membership/internal/member"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patchCall struct {
	id    string
	patch directory.UserPatch
}

type groupAdd struct {
	groupID string
	userID  string
}

type inviteCall struct {
	email       string
	displayName string
}

type sentMail struct {
	senderID string
	mail     directory.Mail
}

// fakeDirectory records every call so tests can assert on call order and
// payloads without a live directory.
type fakeDirectory struct {
	users        map[string]*directory.User
	photos       map[string]*directory.Photo
	groupMembers map[string][]directory.User
	userGroups   map[string][]string

	patches   []patchCall
	photoPuts map[string][]byte
	invites   []inviteCall
	groupAdds []groupAdd
	mails     []sentMail
	deleted   []string

	getErr      error
	updateErr   error
	deleteErr   error
	photoErr    error
	photoPutErr error
	inviteErr   error
	addErr      error
	sendErr     error
	listErr     error

	nextInvite int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:        make(map[string]*directory.User),
		photos:       make(map[string]*directory.Photo),
		groupMembers: make(map[string][]directory.User),
		userGroups:   make(map[string][]string),
		photoPuts:    make(map[string][]byte),
	}
}

func (f *fakeDirectory) GetUser(ctx context.Context, id string) (*directory.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	user, ok := f.users[id]
	if !ok {
		return nil, directory.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeDirectory) UpdateUser(ctx context.Context, id string, patch directory.UserPatch) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.patches = append(f.patches, patchCall{id: id, patch: patch})
	return nil
}

func (f *fakeDirectory) DeleteUser(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDirectory) GetUserPhoto(ctx context.Context, id string) (*directory.Photo, error) {
	if f.photoErr != nil {
		return nil, f.photoErr
	}
	photo, ok := f.photos[id]
	if !ok {
		return nil, directory.ErrPhotoNotFound
	}
	return photo, nil
}

func (f *fakeDirectory) PutUserPhoto(ctx context.Context, id string, content []byte) error {
	if f.photoPutErr != nil {
		return f.photoPutErr
	}
	f.photoPuts[id] = content
	return nil
}

func (f *fakeDirectory) ListGroupMembers(ctx context.Context, groupID string) ([]directory.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.groupMembers[groupID], nil
}

func (f *fakeDirectory) ListUserGroups(ctx context.Context, userID string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.userGroups[userID], nil
}

func (f *fakeDirectory) AddGroupMember(ctx context.Context, groupID, userID string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.groupAdds = append(f.groupAdds, groupAdd{groupID: groupID, userID: userID})
	return nil
}

func (f *fakeDirectory) Invite(ctx context.Context, email, displayName string) (*directory.Invitation, error) {
	if f.inviteErr != nil {
		return nil, f.inviteErr
	}
	f.invites = append(f.invites, inviteCall{email: email, displayName: displayName})
	f.nextInvite++
	id := fmt.Sprintf("invited-%d", f.nextInvite)
	return &directory.Invitation{
		ID:            fmt.Sprintf("invitation-%d", f.nextInvite),
		RedeemURL:     "https://directory.example.com/redeem/" + id,
		Status:        "PendingAcceptance",
		InvitedUserID: id,
	}, nil
}

func (f *fakeDirectory) SendMail(ctx context.Context, senderID string, mail directory.Mail) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mails = append(f.mails, sentMail{senderID: senderID, mail: mail})
	return nil
}

const (
	testMembersGroup = "group-members"
	testMailSender   = "sender-id"
)

func newTestService(f *fakeDirectory) *member.Service {
	return newTestServiceWith(f)
}

func newTestServiceWith(client member.DirectoryClient) *member.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return member.NewService(client, testMembersGroup, testMailSender, &mail.Template{}, logger)
}

// jpegBytes returns n bytes beginning with a valid JFIF header.
func jpegBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0xff, 0xd8, 0xff, 0xe0})
	return b
}

func TestService_GetMember(t *testing.T) {
	t.Run("with_photo", func(t *testing.T) {
		fake := newFakeDirectory()
		fake.users["u1"] = &directory.User{ID: "u1", DisplayName: "Ada Lovelace", Surname: "Lovelace", Mail: "ada@example.com"}
		fake.photos["u1"] = &directory.Photo{Width: 96, Height: 96, ContentType: "image/jpeg", Data: jpegBytes(10)}

		m, err := newTestService(fake).GetMember(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", m.DisplayName)
		require.NotNil(t, m.Photo)
		assert.Equal(t, 96, m.Photo.Width)
		assert.Equal(t, "image/jpeg", m.Photo.ContentType)
	})

	t.Run("photo_missing_is_not_an_error", func(t *testing.T) {
		fake := newFakeDirectory()
		fake.users["u1"] = &directory.User{ID: "u1", DisplayName: "Ada Lovelace"}

		m, err := newTestService(fake).GetMember(context.Background(), "u1")
		require.NoError(t, err)
		assert.Nil(t, m.Photo)
	})

	t.Run("photo_fetch_failure_is_swallowed", func(t *testing.T) {
		fake := newFakeDirectory()
		fake.users["u1"] = &directory.User{ID: "u1", DisplayName: "Ada Lovelace"}
		fake.photoErr = errors.New("directory: get photo failed, status code: 500")

		m, err := newTestService(fake).GetMember(context.Background(), "u1")
		require.NoError(t, err)
		assert.Nil(t, m.Photo)
	})

	t.Run("unknown_member", func(t *testing.T) {
		fake := newFakeDirectory()

		_, err := newTestService(fake).GetMember(context.Background(), "nope")
		assert.ErrorIs(t, err, directory.ErrUserNotFound)
	})
}

func TestService_GetAllMembers_SortedBySurname(t *testing.T) {
	fake := newFakeDirectory()
	fake.groupMembers[testMembersGroup] = []directory.User{
		{ID: "u1", Surname: "Zuse"},
		{ID: "u2", Surname: "Babbage"},
		{ID: "u3", Surname: "Lovelace"},
	}

	members, err := newTestService(fake).GetAllMembers(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "Babbage", members[0].Surname)
	assert.Equal(t, "Lovelace", members[1].Surname)
	assert.Equal(t, "Zuse", members[2].Surname)
}

func TestService_UpdateMember_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  member.UpdateParams
		wantErr error
	}{
		{
			name:    "blank_display_name",
			params:  member.UpdateParams{ID: "u1", DisplayName: "   "},
			wantErr: member.ErrDisplayNameRequired,
		},
		{
			name:    "photo_too_large",
			params:  member.UpdateParams{ID: "u1", DisplayName: "Ada", Photo: jpegBytes(member.MaxPhotoBytes + 1)},
			wantErr: member.ErrPhotoTooLarge,
		},
		{
			name:    "photo_not_jpeg",
			params:  member.UpdateParams{ID: "u1", DisplayName: "Ada", Photo: []byte{0x89, 0x50, 0x4e, 0x47, 0x0d}},
			wantErr: member.ErrPhotoNotJpeg,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeDirectory()
			err := newTestService(fake).UpdateMember(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.wantErr)

			// Validation failures must not reach the directory.
			assert.Empty(t, fake.patches)
			assert.Empty(t, fake.photoPuts)
		})
	}
}

func TestService_UpdateMember(t *testing.T) {
	t.Run("patch_and_photo", func(t *testing.T) {
		fake := newFakeDirectory()
		active := true
		photo := jpegBytes(member.MaxPhotoBytes) // largest accepted size

		err := newTestService(fake).UpdateMember(context.Background(), member.UpdateParams{
			ID:          "u1",
			DisplayName: "Ada Lovelace",
			GivenName:   "Ada",
			Surname:     "Lovelace",
			GitHubID:    "ada",
			IsActive:    &active,
			Photo:       photo,
		})
		require.NoError(t, err)

		require.Len(t, fake.patches, 1)
		patch := fake.patches[0]
		assert.Equal(t, "u1", patch.id)
		assert.Equal(t, "Ada Lovelace", *patch.patch.DisplayName)
		require.NotNil(t, patch.patch.Extension)
		assert.Equal(t, "ada", patch.patch.Extension.GitHubID)
		require.NotNil(t, patch.patch.Extension.IsActive)
		assert.True(t, *patch.patch.Extension.IsActive)

		assert.Equal(t, photo, fake.photoPuts["u1"])
	})

	t.Run("photo_put_failure_leaves_patch_committed", func(t *testing.T) {
		fake := newFakeDirectory()
		fake.photoPutErr = errors.New("directory: put photo failed, status code: 500")

		err := newTestService(fake).UpdateMember(context.Background(), member.UpdateParams{
			ID:          "u1",
			DisplayName: "Ada Lovelace",
			Photo:       jpegBytes(10),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, fake.photoPutErr)

		// The record patch went through and stays; no compensating call
		// follows the failed photo write.
		require.Len(t, fake.patches, 1)
		assert.Equal(t, "u1", fake.patches[0].id)
		assert.Empty(t, fake.photoPuts)
		assert.Empty(t, fake.deleted)
	})

	t.Run("no_photo_means_no_photo_write", func(t *testing.T) {
		fake := newFakeDirectory()

		err := newTestService(fake).UpdateMember(context.Background(), member.UpdateParams{
			ID:          "u1",
			DisplayName: "Ada Lovelace",
		})
		require.NoError(t, err)

		require.Len(t, fake.patches, 1)
		assert.Empty(t, fake.photoPuts)
	})
}

func TestService_SetMemberActive(t *testing.T) {
	t.Run("activate_grants_a_year", func(t *testing.T) {
		fake := newFakeDirectory()

		before := time.Now().UTC()
		err := newTestService(fake).SetMemberActive(context.Background(), "u1", true)
		require.NoError(t, err)

		require.Len(t, fake.patches, 1)
		ext := fake.patches[0].patch.Extension
		require.NotNil(t, ext)
		require.NotNil(t, ext.IsActive)
		assert.True(t, *ext.IsActive)
		require.NotNil(t, ext.ExpirationDateTime)
		assert.WithinDuration(t, before.AddDate(1, 0, 0), *ext.ExpirationDateTime, time.Minute)
	})

	t.Run("deactivate_expires_now", func(t *testing.T) {
		fake := newFakeDirectory()

		before := time.Now().UTC()
		err := newTestService(fake).SetMemberActive(context.Background(), "u1", false)
		require.NoError(t, err)

		require.Len(t, fake.patches, 1)
		ext := fake.patches[0].patch.Extension
		require.NotNil(t, ext)
		require.NotNil(t, ext.IsActive)
		assert.False(t, *ext.IsActive)
		require.NotNil(t, ext.ExpirationDateTime)
		assert.WithinDuration(t, before, *ext.ExpirationDateTime, time.Minute)
	})
}
