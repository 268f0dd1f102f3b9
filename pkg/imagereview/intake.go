package imagereview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tendant/image-review/pkg/imagereview/messaging"
	"github.com/tendant/image-review/pkg/imagereview/metrics"
)

// DefaultAllowedExtensions is the file-type policy applied when none is
// configured.
var DefaultAllowedExtensions = []string{".jpeg", ".png"}

// IntakeValidator consumes object-creation notifications from the intake
// queue. Uploads with an allowed extension get a record keyed by the object
// key; anything else is a policy rejection that rides the dead-letter path,
// which is the rejection-handling workflow.
type IntakeValidator struct {
	records RecordStore
	allowed map[string]bool
	log     *slog.Logger
	now     func() time.Time
}

// normalizeExtensions builds the lowercase, dot-prefixed allowlist shared by
// the intake validator and the reaper. A nil or empty list falls back to
// DefaultAllowedExtensions.
func normalizeExtensions(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = DefaultAllowedExtensions
	}
	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return allowed
}

// NewIntakeValidator creates the intake worker. A nil or empty extension
// list falls back to DefaultAllowedExtensions; a nil logger falls back to
// slog.Default().
func NewIntakeValidator(records RecordStore, allowedExts []string, log *slog.Logger) *IntakeValidator {
	if log == nil {
		log = slog.Default()
	}
	return &IntakeValidator{
		records: records,
		allowed: normalizeExtensions(allowedExts),
		log:     log,
		now:     time.Now,
	}
}

// HandleMessage validates and records every object notification in the
// envelope. A notification with no object store location is logged and
// skipped; a disallowed extension is a terminal failure so the delivery
// primitive dead-letters the message.
//
// Records are validated before anything is written. An envelope mixing valid
// and invalid uploads still records the valid ones, and the whole envelope
// then rides the dead-letter path for the rejections; the reaper re-checks
// the policy so recorded siblings keep their objects.
func (w *IntakeValidator) HandleMessage(ctx context.Context, env messaging.Envelope) error {
	var event ObjectCreatedEvent
	if err := json.Unmarshal(env.Body, &event); err != nil {
		w.log.Error("undecodable intake message, discarding", "message_id", env.ID, "error", err)
		metrics.MalformedMessages.WithLabelValues("intake").Inc()
		return nil
	}

	var accepted []string
	var rejections []error
	for _, record := range event.Records {
		if record.S3 == nil {
			w.log.Warn("no object store location in intake message", "message_id", env.ID)
			metrics.MalformedMessages.WithLabelValues("intake").Inc()
			continue
		}
		key, err := DecodeObjectKey(record.S3.Object.Key)
		if err != nil {
			rejections = append(rejections,
				fmt.Errorf("undecodable object key %q: %w", record.S3.Object.Key, err))
			continue
		}

		ext := strings.ToLower(path.Ext(key))
		if !w.allowed[ext] {
			w.log.Info("rejecting upload", "key", key, "extension", ext)
			rejections = append(rejections, fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext))
			continue
		}
		accepted = append(accepted, key)
	}

	for _, key := range accepted {
		// Unconditional put: reprocessing the same key overwrites only
		// createdAt, and the record is otherwise empty at this point.
		rec := &ImageRecord{
			ID:        key,
			CreatedAt: w.now().UTC().Format(time.RFC3339),
		}
		if err := w.records.Put(ctx, rec); err != nil {
			return &RecordError{ID: key, Op: "put", Err: err}
		}
		w.log.Info("image recorded", "id", key)
	}

	if len(rejections) > 0 {
		return messaging.Terminal(errors.Join(rejections...))
	}
	return nil
}

// DecodeObjectKey reverses the URL encoding object store notifications apply
// to keys, including "+" as space.
func DecodeObjectKey(key string) (string, error) {
	return url.QueryUnescape(key)
}
