package imagereview

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"strings"

	"github.com/tendant/image-review/pkg/imagereview/messaging"
	"github.com/tendant/image-review/pkg/imagereview/metrics"
)

// InvalidObjectReaper consumes the intake dead-letter queue and purges
// rejected objects from the store. It re-checks the extension policy before
// deleting: a dead-lettered envelope can carry valid siblings of the upload
// that got it rejected, and those already have records, so their objects
// must stay.
type InvalidObjectReaper struct {
	objects ObjectStore
	allowed map[string]bool
	log     *slog.Logger
}

// NewInvalidObjectReaper creates the reaper worker. The extension allowlist
// must match the intake validator's; a nil or empty list falls back to
// DefaultAllowedExtensions.
func NewInvalidObjectReaper(objects ObjectStore, allowedExts []string, log *slog.Logger) *InvalidObjectReaper {
	if log == nil {
		log = slog.Default()
	}
	return &InvalidObjectReaper{
		objects: objects,
		allowed: normalizeExtensions(allowedExts),
		log:     log,
	}
}

// HandleMessage deletes every disallowed object named in the envelope.
// Messages without recognizable store-location fields are logged and skipped
// rather than failing the batch; a transport failure is returned for
// redelivery.
func (w *InvalidObjectReaper) HandleMessage(ctx context.Context, env messaging.Envelope) error {
	var event ObjectCreatedEvent
	if err := json.Unmarshal(env.Body, &event); err != nil {
		w.log.Error("undecodable dead-letter message, discarding", "message_id", env.ID, "error", err)
		metrics.MalformedMessages.WithLabelValues("reaper").Inc()
		return nil
	}

	for _, record := range event.Records {
		if record.S3 == nil {
			w.log.Warn("no object store location in dead-letter message", "message_id", env.ID)
			metrics.MalformedMessages.WithLabelValues("reaper").Inc()
			continue
		}
		bucket := record.S3.Bucket.Name
		key, err := DecodeObjectKey(record.S3.Object.Key)
		if err != nil {
			// An undecodable key was rejected at intake with the raw key
			// intact, so purge the raw key.
			w.log.Warn("undecodable object key in dead-letter message, deleting raw key",
				"message_id", env.ID, "key", record.S3.Object.Key, "error", err)
			key = record.S3.Object.Key
		} else if w.allowed[strings.ToLower(path.Ext(key))] {
			w.log.Info("keeping allowed upload from dead-letter message", "bucket", bucket, "key", key)
			continue
		}

		if err := w.objects.Delete(ctx, bucket, key); err != nil {
			return &ObjectError{Bucket: bucket, Key: key, Op: "delete", Err: err}
		}
		w.log.Info("deleted invalid image", "bucket", bucket, "key", key)
	}
	return nil
}
