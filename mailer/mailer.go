// Package mailer delivers the transactional mail the engine produces:
// password reset links and email verification links. The engine depends on
// the Sender interface only; delivery failures are logged upstream, never
// surfaced to the requester.
package mailer

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrInvalidConfig is returned by constructors on missing settings.
	ErrInvalidConfig = errors.New("invalid mailer config")
	// ErrSendFailed wraps delivery failures.
	ErrSendFailed = errors.New("failed to send email")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidAddress reports whether addr looks like a deliverable email address.
func ValidAddress(addr string) bool {
	return emailPattern.MatchString(addr)
}

// Message is one outbound transactional mail.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
	Tag      string
}

// Validate checks the fields every backend needs.
func (m *Message) Validate() error {
	if !emailPattern.MatchString(m.To) {
		return errors.New("invalid recipient address")
	}
	if m.Subject == "" {
		return errors.New("empty subject")
	}
	if m.TextBody == "" && m.HTMLBody == "" {
		return errors.New("empty body")
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
