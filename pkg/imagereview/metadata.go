package imagereview

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tendant/image-review/pkg/imagereview/messaging"
	"github.com/tendant/image-review/pkg/imagereview/metrics"
)

// MetadataFilterPolicy is the broker-side filter for the metadata topic
// subscription: metadata_type must be one of the photographer-editable
// fields, and user_type, when present, must be Photographer.
func MetadataFilterPolicy() messaging.FilterPolicy {
	return messaging.FilterPolicy{
		AttrMetadataType: {Allow: []string{
			string(MetadataCaption),
			string(MetadataDate),
			string(MetadataName),
		}},
		AttrUserType: {Allow: []string{UserTypePhotographer}, Optional: true},
	}
}

// MetadataApplier performs single-field updates from filtered metadata
// messages. The field name travels as the metadata_type envelope attribute;
// the payload carries only {id, value}.
type MetadataApplier struct {
	records RecordStore
	log     *slog.Logger
}

// NewMetadataApplier creates the metadata worker.
func NewMetadataApplier(records RecordStore, log *slog.Logger) *MetadataApplier {
	if log == nil {
		log = slog.Default()
	}
	return &MetadataApplier{records: records, log: log}
}

// HandleMessage applies one metadata update. A missing id, value, or
// metadata_type is malformed input: logged and discarded, never retried.
func (w *MetadataApplier) HandleMessage(ctx context.Context, env messaging.Envelope) error {
	var msg MetadataMessage
	if err := json.Unmarshal(env.Body, &msg); err != nil {
		w.log.Error("undecodable metadata message, discarding", "message_id", env.ID, "error", err)
		metrics.MalformedMessages.WithLabelValues("metadata").Inc()
		return nil
	}

	metadataType := env.Attribute(AttrMetadataType)
	if msg.ID == "" || msg.Value == "" || metadataType == "" {
		w.log.Error("metadata message missing required fields, discarding",
			"message_id", env.ID, "id", msg.ID, "metadata_type", metadataType)
		metrics.MalformedMessages.WithLabelValues("metadata").Inc()
		return nil
	}

	field, ok := ParseMetadataField(metadataType)
	if !ok {
		// The subscription filter keeps these out; one arriving anyway is
		// malformed, not transient.
		w.log.Error("unknown metadata_type, discarding",
			"message_id", env.ID, "metadata_type", metadataType)
		metrics.MalformedMessages.WithLabelValues("metadata").Inc()
		return nil
	}

	fields := map[RecordField]string{field.RecordField(): msg.Value}
	if err := w.records.UpdateFields(ctx, msg.ID, fields); err != nil {
		return &RecordError{ID: msg.ID, Op: "update metadata", Err: err}
	}
	w.log.Info("metadata applied", "id", msg.ID, "field", string(field))
	return nil
}
