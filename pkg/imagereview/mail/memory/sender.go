// Package memory provides an in-memory imagereview.EmailSender that captures
// sent emails for tests.
package memory

import (
	"context"
	"sync"
)

// Email is one captured message.
type Email struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

// Sender implements imagereview.EmailSender by recording every send.
type Sender struct {
	mu   sync.Mutex
	sent []Email

	// SendErr, when set, is returned by Send instead of recording.
	SendErr error
}

// New creates a capturing sender.
func New() *Sender {
	return &Sender{}
}

// Send records the email, or fails with SendErr when set.
func (s *Sender) Send(ctx context.Context, from, to, subject, htmlBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SendErr != nil {
		return s.SendErr
	}
	s.sent = append(s.sent, Email{From: from, To: to, Subject: subject, HTMLBody: htmlBody})
	return nil
}

// Sent returns a copy of the captured emails.
func (s *Sender) Sent() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Email(nil), s.sent...)
}
