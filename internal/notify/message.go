// Package notify delivers outgoing email: the welcome message with a new
// artist's temporary credentials, sent detached from the request.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"

	"github.com/talentdesk/backend/internal/models"
)

// WelcomeSubject is the subject line of the credentials email.
const WelcomeSubject = "Welcome to Our Team"

// Message is one outgoing email.
type Message struct {
	Type    string
	To      string
	Subject string
	Text    string
	HTML    string
	// LogID links the message to its email_logs row, when one was recorded.
	LogID *uuid.UUID
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeMessage builds the credentials email for a provisioned artist.
func WelcomeMessage(email, tempPassword string) Message {
	text := fmt.Sprintf("Welcome! Your account has been created.\n\n"+
		"Email: %s\nTemporary password: %s\n\n"+
		"Please log in and change your password.", email, tempPassword)
	body := fmt.Sprintf("<p>Welcome! Your account has been created.</p>"+
		"<p>Email: <strong>%s</strong><br>Temporary password: <strong>%s</strong></p>"+
		"<p>Please log in and change your password.</p>", html.EscapeString(email), html.EscapeString(tempPassword))
	return Message{
		Type:    models.EmailTypeArtistWelcome,
		To:      email,
		Subject: WelcomeSubject,
		Text:    text,
		HTML:    body,
	}
}
