package imagereview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tendant/image-review/pkg/imagereview/messaging"
	"github.com/tendant/image-review/pkg/imagereview/metrics"
)

// StatusTransitionWorker applies moderation decisions. Each message sets
// status, reason, and reviewedAt in one multi-field update, then publishes a
// derived notification event to the notify topic.
//
// The publish is not transactional with the store update. If the update
// commits and the publish fails, the handler returns a retryable error: the
// rerun reapplies the same deterministic update and republishes the same
// notification, which is safe under at-least-once delivery.
type StatusTransitionWorker struct {
	records RecordStore
	notify  messaging.Topic
	log     *slog.Logger
}

// NewStatusTransitionWorker creates the status worker.
func NewStatusTransitionWorker(records RecordStore, notify messaging.Topic, log *slog.Logger) *StatusTransitionWorker {
	if log == nil {
		log = slog.Default()
	}
	return &StatusTransitionWorker{records: records, notify: notify, log: log}
}

// HandleMessage applies one status transition. A missing id, status, or
// reason is malformed input: logged and discarded, never retried.
func (w *StatusTransitionWorker) HandleMessage(ctx context.Context, env messaging.Envelope) error {
	var msg StatusMessage
	if err := json.Unmarshal(env.Body, &msg); err != nil {
		w.log.Error("undecodable status message, discarding", "message_id", env.ID, "error", err)
		metrics.MalformedMessages.WithLabelValues("status").Inc()
		return nil
	}

	if msg.ID == "" || msg.Update.Status == "" || msg.Update.Reason == "" {
		w.log.Error("status message missing required fields, discarding",
			"message_id", env.ID, "id", msg.ID)
		metrics.MalformedMessages.WithLabelValues("status").Inc()
		return nil
	}

	// One multi-field set, so partially-applied status state is never
	// visible.
	fields := map[RecordField]string{
		FieldStatus:     string(msg.Update.Status),
		FieldReason:     msg.Update.Reason,
		FieldReviewedAt: msg.Date,
	}
	if err := w.records.UpdateFields(ctx, msg.ID, fields); err != nil {
		return &RecordError{ID: msg.ID, Op: "update status", Err: err}
	}
	w.log.Info("status updated", "id", msg.ID, "status", string(msg.Update.Status))

	notification := NotificationMessage{
		ID:     msg.ID,
		Status: msg.Update.Status,
		Reason: msg.Update.Reason,
	}
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := w.notify.Publish(ctx, body, nil); err != nil {
		return fmt.Errorf("failed to publish notification for %s: %w", msg.ID, err)
	}
	return nil
}
