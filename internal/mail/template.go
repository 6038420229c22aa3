// Package mail loads and renders the templated welcome message sent to newly
// invited members in place of the directory's own invitation mail.
package mail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"membership/internal/config"
	"membership/internal/directory"
)

const welcomeSubject = "Welcome to the membership program"

// The two images referenced from the welcome template body by content id.
var attachmentFiles = []struct {
	name      string
	contentID string
}{
	{"header.png", "header"},
	{"logo.png", "logo"},
}

// Template is the welcome mail template with its fixed inline attachments,
// loaded once at startup.
type Template struct {
	Subject     string
	Attachments []directory.MailAttachment

	body string
}

func NewTemplate(cfg config.MailConfig) (*Template, error) {
	body, err := os.ReadFile(cfg.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("mail: read welcome template: %w", err)
	}

	t := &Template{
		Subject: welcomeSubject,
		body:    string(body),
	}

	for _, att := range attachmentFiles {
		content, err := os.ReadFile(filepath.Join(cfg.AttachmentDir, att.name))
		if err != nil {
			return nil, fmt.Errorf("mail: read attachment %s: %w", att.name, err)
		}
		t.Attachments = append(t.Attachments, directory.MailAttachment{
			Name:        att.name,
			ContentType: "image/png",
			Content:     content,
			ContentID:   att.contentID,
		})
	}

	return t, nil
}

// Render substitutes the invitation redemption URL and the recipient's first
// name into the template body.
func (t *Template) Render(action, name string) string {
	body := strings.ReplaceAll(t.body, "{{action}}", action)
	return strings.ReplaceAll(body, "{{name}}", name)
}
