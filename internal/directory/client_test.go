package directory_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"membership/internal/config"
	"membership/internal/directory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires an httptest server whose token endpoint satisfies the
// client-credentials transport, and delegates every other path to handler.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *directory.Client) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"test-access-token","token_type":"Bearer","expires_in":3600}`)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client := directory.NewClient(config.DirectoryConfig{
		BaseURL:           server.URL,
		TokenURL:          server.URL + "/oauth2/token",
		ClientID:          "client-id",
		ClientSecret:      "client-secret",
		InviteRedirectURL: "https://members.example.com/welcome",
	})
	return server, client
}

func TestClient_GetUser(t *testing.T) {
	t.Run("parses_user_with_extension", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/users/u1", r.URL.Path)
			assert.Equal(t, "Bearer test-access-token", r.Header.Get("Authorization"))
			assert.Contains(t, r.URL.RawQuery, directory.ExtensionKey)

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{
				"id": "u1",
				"displayName": "Ada Lovelace",
				"surname": "Lovelace",
				"mail": "ada@example.com",
				"membership_member": {"githubId": "ada", "isActive": true}
			}`)
		})

		user, err := client.GetUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, "ada@example.com", user.Mail)
		require.NotNil(t, user.Extension)
		assert.Equal(t, "ada", user.Extension.GitHubID)
		require.NotNil(t, user.Extension.IsActive)
		assert.True(t, *user.Extension.IsActive)
	})

	t.Run("not_found", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.GetUser(context.Background(), "missing")
		assert.ErrorIs(t, err, directory.ErrUserNotFound)
	})

	t.Run("server_error", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.GetUser(context.Background(), "u1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status code: 500")
	})
}

func TestClient_UpdateUser(t *testing.T) {
	var received map[string]any
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/users/u1", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusNoContent)
	})

	name := "Ada Lovelace"
	err := client.UpdateUser(context.Background(), "u1", directory.UserPatch{
		DisplayName: &name,
		Extension:   &directory.MemberExtension{GitHubID: "ada"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", received["displayName"])
	ext, ok := received[directory.ExtensionKey].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada", ext["githubId"])
	// Unset flag and expiration stay out of the patch entirely.
	assert.NotContains(t, ext, "isActive")
	assert.NotContains(t, ext, "expirationDateTime")
}

func TestClient_GetUserPhoto(t *testing.T) {
	t.Run("metadata_and_content", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/users/u1/photo":
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"width": 96, "height": 96, "@odata.mediaContentType": "image/jpeg"}`)
			case "/users/u1/photo/$value":
				w.Header().Set("Content-Type", "image/jpeg")
				w.Write([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})

		photo, err := client.GetUserPhoto(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, 96, photo.Width)
		assert.Equal(t, "image/jpeg", photo.ContentType)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, photo.Data)
	})

	t.Run("no_photo", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.GetUserPhoto(context.Background(), "u1")
		assert.ErrorIs(t, err, directory.ErrPhotoNotFound)
	})
}

func TestClient_ListGroupMembers_Pagination(t *testing.T) {
	var server *httptest.Server
	server, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/groups/g1/members" && r.URL.Query().Get("page") == "2":
			fmt.Fprint(w, `{"value": [{"id": "u3", "surname": "Zuse"}]}`)
		case r.URL.Path == "/groups/g1/members":
			fmt.Fprintf(w, `{
				"value": [{"id": "u1", "surname": "Lovelace"}, {"id": "u2", "surname": "Babbage"}],
				"@odata.nextLink": %q
			}`, server.URL+"/groups/g1/members?page=2")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	users, err := client.ListGroupMembers(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "u3", users[2].ID)
}

func TestClient_AddGroupMember(t *testing.T) {
	t.Run("added", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/groups/g1/members/$ref", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), "/directoryObjects/u1")
			w.WriteHeader(http.StatusNoContent)
		})

		err := client.AddGroupMember(context.Background(), "g1", "u1")
		assert.NoError(t, err)
	})

	t.Run("already_member", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": {"message": "One or more added object references already exist for the following modified properties: 'members'."}}`)
		})

		err := client.AddGroupMember(context.Background(), "g1", "u1")
		assert.ErrorIs(t, err, directory.ErrAlreadyMember)
	})
}

func TestClient_Invite(t *testing.T) {
	t.Run("suppresses_directory_mail", func(t *testing.T) {
		var received map[string]any
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/invitations", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &received))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{
				"id": "inv-1",
				"inviteRedeemUrl": "https://directory.example.com/redeem/abc",
				"status": "PendingAcceptance",
				"invitedUser": {"id": "u-new"}
			}`)
		})

		inv, err := client.Invite(context.Background(), "ada@example.com", "Ada Lovelace")
		require.NoError(t, err)
		assert.Equal(t, "u-new", inv.InvitedUserID)
		assert.Equal(t, "https://directory.example.com/redeem/abc", inv.RedeemURL)

		assert.Equal(t, "ada@example.com", received["invitedUserEmailAddress"])
		assert.Equal(t, false, received["sendInvitationMessage"])
		assert.Equal(t, "https://members.example.com/welcome", received["inviteRedirectUrl"])
	})

	t.Run("duplicate_address", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})

		_, err := client.Invite(context.Background(), "taken@example.com", "Taken")
		assert.ErrorIs(t, err, directory.ErrDuplicateInvitation)
	})
}

func TestClient_SendMail(t *testing.T) {
	var received map[string]any
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/sender-1/sendMail", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusAccepted)
	})

	err := client.SendMail(context.Background(), "sender-1", directory.Mail{
		Subject:  "Welcome",
		HTMLBody: `<p>Hello <img src="cid:logo"></p>`,
		To:       []string{"ada@example.com"},
		Attachments: []directory.MailAttachment{
			{Name: "logo.png", ContentType: "image/png", Content: []byte{1, 2, 3}, ContentID: "logo"},
		},
	})
	require.NoError(t, err)

	message, ok := received["message"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Welcome", message["subject"])

	attachments, ok := message["attachments"].([]any)
	require.True(t, ok)
	require.Len(t, attachments, 1)
	attachment := attachments[0].(map[string]any)
	assert.Equal(t, "logo.png", attachment["name"])
	assert.Equal(t, true, attachment["isInline"])
	assert.Equal(t, "logo", attachment["contentId"])
	// encoding/json base64-encodes byte slices.
	assert.Equal(t, "AQID", attachment["contentBytes"])
}
