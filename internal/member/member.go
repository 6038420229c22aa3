// Package member holds the membership domain logic: mapping directory user
// records to member models, the update and invitation workflows, and the
// identity-replacing email change.
package member

import (
	"time"

	"membership/internal/directory"
)

// Member is a person in the directory, combining the native user fields with
// the membership extension attributes.
type Member struct {
	ID          string
	DisplayName string
	GivenName   string
	Surname     string
	Email       string
	IsActive    bool
	Expiration  time.Time
	GitHubID    string
	TwitterID   string
	BlogURL     string
	Photo       *Photo
}

// Photo is a member's profile photo as served from the directory.
type Photo struct {
	Width       int
	Height      int
	ContentType string
	Data        []byte
}

// FromUser converts a raw directory user record into a Member. The email is
// the primary mailbox when present, else the first alternate mailbox. An
// absent extension payload leaves the membership fields at their zero values;
// in particular a member without an isActive flag is treated as inactive.
func FromUser(u *directory.User) Member {
	email := u.Mail
	if email == "" && len(u.OtherMails) > 0 {
		email = u.OtherMails[0]
	}

	m := Member{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		GivenName:   u.GivenName,
		Surname:     u.Surname,
		Email:       email,
	}

	if ext := u.Extension; ext != nil {
		m.GitHubID = ext.GitHubID
		m.TwitterID = ext.TwitterID
		m.BlogURL = ext.BlogURL
		if ext.IsActive != nil {
			m.IsActive = *ext.IsActive
		}
		if ext.ExpirationDateTime != nil {
			m.Expiration = *ext.ExpirationDateTime
		}
	}

	return m
}
