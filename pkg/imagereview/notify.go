package imagereview

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"

	"github.com/tendant/image-review/pkg/imagereview/messaging"
	"github.com/tendant/image-review/pkg/imagereview/metrics"
)

// NotificationWorker turns notification events into emails to the statically
// configured recipient. It keeps no local state; transport failures surface
// to the delivery primitive for redelivery, and a duplicate delivery may
// send a duplicate email, which is the stated at-least-once guarantee.
type NotificationWorker struct {
	mail EmailSender
	from string
	to   string
	log  *slog.Logger
}

// NewNotificationWorker creates the notification worker.
func NewNotificationWorker(mail EmailSender, from, to string, log *slog.Logger) *NotificationWorker {
	if log == nil {
		log = slog.Default()
	}
	return &NotificationWorker{mail: mail, from: from, to: to, log: log}
}

// HandleMessage sends one review-result email.
func (w *NotificationWorker) HandleMessage(ctx context.Context, env messaging.Envelope) error {
	var msg NotificationMessage
	if err := json.Unmarshal(env.Body, &msg); err != nil {
		w.log.Error("undecodable notification message, discarding", "message_id", env.ID, "error", err)
		metrics.MalformedMessages.WithLabelValues("notify").Inc()
		return nil
	}
	if msg.ID == "" || msg.Status == "" {
		w.log.Error("notification message missing required fields, discarding",
			"message_id", env.ID, "id", msg.ID)
		metrics.MalformedMessages.WithLabelValues("notify").Inc()
		return nil
	}

	subject, body := ComposeReviewEmail(msg)
	if err := w.mail.Send(ctx, w.from, w.to, subject, body); err != nil {
		return fmt.Errorf("failed to send review email for %s: %w", msg.ID, err)
	}
	metrics.EmailsSent.Inc()
	w.log.Info("review email sent", "id", msg.ID, "status", string(msg.Status))
	return nil
}

// ComposeReviewEmail builds the deterministic subject and HTML body for a
// notification. Same input, same email, so duplicate deliveries produce
// identical messages.
func ComposeReviewEmail(msg NotificationMessage) (subject, htmlBody string) {
	subject = fmt.Sprintf("Review Result: %s", msg.Status)
	htmlBody = fmt.Sprintf(`<h2>Your image has been reviewed:</h2>
<p><strong>Image ID:</strong> %s</p>
<p><strong>Status:</strong> %s</p>
<p><strong>Reason:</strong> %s</p>`,
		html.EscapeString(msg.ID),
		html.EscapeString(string(msg.Status)),
		html.EscapeString(msg.Reason))
	return subject, htmlBody
}
