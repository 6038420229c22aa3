package model

import (
	"time"

	"membership/internal/member"
)

// UpdateMemberRequest is the edit form for a member record. The photo upload
// arrives as a separate multipart file.
type UpdateMemberRequest struct {
	DisplayName string `form:"display_name" json:"display_name" validate:"required"`
	GivenName   string `form:"given_name" json:"given_name"`
	Surname     string `form:"surname" json:"surname"`
	GitHubID    string `form:"github_id" json:"github_id" validate:"omitempty,social_handle"`
	TwitterID   string `form:"twitter_id" json:"twitter_id" validate:"omitempty,social_handle"`
	BlogURL     string `form:"blog_url" json:"blog_url" validate:"omitempty,url"`
	IsActive    *bool  `form:"is_active" json:"is_active"`
	Expiration  string `form:"expiration" json:"expiration" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateProfileRequest is the self-service subset: members may not change
// their own activity flag or expiration.
type UpdateProfileRequest struct {
	DisplayName string `form:"display_name" json:"display_name" validate:"required"`
	GivenName   string `form:"given_name" json:"given_name"`
	Surname     string `form:"surname" json:"surname"`
	GitHubID    string `form:"github_id" json:"github_id" validate:"omitempty,social_handle"`
	TwitterID   string `form:"twitter_id" json:"twitter_id" validate:"omitempty,social_handle"`
	BlogURL     string `form:"blog_url" json:"blog_url" validate:"omitempty,url"`
}

type SetActiveRequest struct {
	Active bool `form:"active" json:"active"`
}

type ChangeEmailRequest struct {
	NewEmail string `form:"new_email" json:"new_email" validate:"required,email"`
}

// MemberView is the JSON shape of a member record. Photo bytes are never
// inlined; only metadata travels with the record.
type MemberView struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	GivenName   string     `json:"given_name"`
	Surname     string     `json:"surname"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"is_active"`
	Expiration  *time.Time `json:"expiration,omitempty"`
	GitHubID    string     `json:"github_id,omitempty"`
	TwitterID   string     `json:"twitter_id,omitempty"`
	BlogURL     string     `json:"blog_url,omitempty"`
	Photo       *PhotoView `json:"photo,omitempty"`
}

type PhotoView struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type"`
}

func NewMemberView(m member.Member) MemberView {
	view := MemberView{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		GivenName:   m.GivenName,
		Surname:     m.Surname,
		Email:       m.Email,
		IsActive:    m.IsActive,
		GitHubID:    m.GitHubID,
		TwitterID:   m.TwitterID,
		BlogURL:     m.BlogURL,
	}
	if !m.Expiration.IsZero() {
		expiration := m.Expiration
		view.Expiration = &expiration
	}
	if m.Photo != nil {
		view.Photo = &PhotoView{
			Width:       m.Photo.Width,
			Height:      m.Photo.Height,
			ContentType: m.Photo.ContentType,
		}
	}
	return view
}
