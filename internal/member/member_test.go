package member_test

import (
	"testing"
	"time"

	"membership/internal/directory"
	"membership/internal/member"

	"github.com/stretchr/testify/assert"
)

func TestFromUser_Email(t *testing.T) {
	tests := []struct {
		name string
		user directory.User
		want string
	}{
		{
			name: "primary_mailbox_preferred",
			user: directory.User{Mail: "primary@example.com", OtherMails: []string{"other@example.com"}},
			want: "primary@example.com",
		},
		{
			name: "first_alternate_when_no_primary",
			user: directory.User{OtherMails: []string{"first@example.com", "second@example.com"}},
			want: "first@example.com",
		},
		{
			name: "no_mailbox_at_all",
			user: directory.User{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := member.FromUser(&tt.user)
			assert.Equal(t, tt.want, m.Email)
		})
	}
}

func TestFromUser_Extension(t *testing.T) {
	t.Run("absent_extension_means_inactive", func(t *testing.T) {
		m := member.FromUser(&directory.User{ID: "u1", DisplayName: "Ada"})
		assert.False(t, m.IsActive)
		assert.True(t, m.Expiration.IsZero())
		assert.Empty(t, m.GitHubID)
	})

	t.Run("absent_flag_means_inactive", func(t *testing.T) {
		m := member.FromUser(&directory.User{
			ID:        "u1",
			Extension: &directory.MemberExtension{GitHubID: "ada"},
		})
		assert.False(t, m.IsActive)
		assert.Equal(t, "ada", m.GitHubID)
	})

	t.Run("extension_fields_carried_over", func(t *testing.T) {
		active := true
		expiration := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
		m := member.FromUser(&directory.User{
			ID: "u1",
			Extension: &directory.MemberExtension{
				GitHubID:           "ada",
				TwitterID:          "adal",
				BlogURL:            "https://ada.example.com",
				IsActive:           &active,
				ExpirationDateTime: &expiration,
			},
		})
		assert.True(t, m.IsActive)
		assert.Equal(t, expiration, m.Expiration)
		assert.Equal(t, "adal", m.TwitterID)
		assert.Equal(t, "https://ada.example.com", m.BlogURL)
	})
}
