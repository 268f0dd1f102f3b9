package imagereview

// ReviewStatus is the domain type for moderation outcomes.
type ReviewStatus string

// Review status constants (typed). Values arriving on status messages are
// stored as-is; the constants cover the known set.
const (
	StatusPending  ReviewStatus = "Pending"
	StatusApproved ReviewStatus = "Approved"
	StatusRejected ReviewStatus = "Rejected"
)

// RecordField names a mutable attribute of an ImageRecord. Workers address
// fields through this closed set, never by free-form strings.
type RecordField string

const (
	FieldCaption    RecordField = "Caption"
	FieldDate       RecordField = "Date"
	FieldName       RecordField = "Name"
	FieldStatus     RecordField = "status"
	FieldReason     RecordField = "reason"
	FieldReviewedAt RecordField = "reviewedAt"
)

// MetadataField is the subset of record fields a photographer may set through
// metadata messages.
type MetadataField string

const (
	MetadataCaption MetadataField = "Caption"
	MetadataDate    MetadataField = "Date"
	MetadataName    MetadataField = "Name"
)

// ParseMetadataField maps a metadata_type attribute value to its field.
// The bool result is false for anything outside the closed set.
func ParseMetadataField(s string) (MetadataField, bool) {
	switch f := MetadataField(s); f {
	case MetadataCaption, MetadataDate, MetadataName:
		return f, true
	}
	return "", false
}

// RecordField returns the record field this metadata field writes to.
func (f MetadataField) RecordField() RecordField { return RecordField(f) }

// ImageRecord is the per-image state held in the record store. ID is the
// uploaded object's key, immutable once created. A record may exist with only
// CreatedAt populated; metadata and status fields are filled in independently
// by different workers and partial updates never clobber fields they do not
// name. Timestamps are stored as ISO 8601 strings, matching the wire format.
type ImageRecord struct {
	ID         string       `json:"id" dynamodbav:"id"`
	CreatedAt  string       `json:"createdAt" dynamodbav:"createdAt"`
	Caption    string       `json:"Caption,omitempty" dynamodbav:"Caption,omitempty"`
	Date       string       `json:"Date,omitempty" dynamodbav:"Date,omitempty"`
	Name       string       `json:"Name,omitempty" dynamodbav:"Name,omitempty"`
	Status     ReviewStatus `json:"status,omitempty" dynamodbav:"status,omitempty"`
	Reason     string       `json:"reason,omitempty" dynamodbav:"reason,omitempty"`
	ReviewedAt string       `json:"reviewedAt,omitempty" dynamodbav:"reviewedAt,omitempty"`
}

// SetField sets a single named field. Used by record store backends that
// apply field maps in memory.
func (r *ImageRecord) SetField(field RecordField, value string) {
	switch field {
	case FieldCaption:
		r.Caption = value
	case FieldDate:
		r.Date = value
	case FieldName:
		r.Name = value
	case FieldStatus:
		r.Status = ReviewStatus(value)
	case FieldReason:
		r.Reason = value
	case FieldReviewedAt:
		r.ReviewedAt = value
	}
}

// GetField returns the value of a single named field.
func (r *ImageRecord) GetField(field RecordField) string {
	switch field {
	case FieldCaption:
		return r.Caption
	case FieldDate:
		return r.Date
	case FieldName:
		return r.Name
	case FieldStatus:
		return string(r.Status)
	case FieldReason:
		return r.Reason
	case FieldReviewedAt:
		return r.ReviewedAt
	}
	return ""
}

// Wire shapes. Field names are fixed by the upstream producers.

// ObjectCreatedEvent mirrors the object store's creation notification as it
// arrives wrapped in a queue message body.
type ObjectCreatedEvent struct {
	Records []ObjectCreatedRecord `json:"Records"`
}

// ObjectCreatedRecord is one entry of an ObjectCreatedEvent.
type ObjectCreatedRecord struct {
	S3 *S3Entity `json:"s3"`
}

// S3Entity carries the bucket/key pair of a created object.
type S3Entity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

type S3Bucket struct {
	Name string `json:"name"`
}

type S3Object struct {
	Key string `json:"key"`
}

// MetadataMessage is the payload of a metadata topic message. The field being
// set travels as the metadata_type envelope attribute, not in the payload.
type MetadataMessage struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// StatusMessage is the payload of a status topic message.
type StatusMessage struct {
	ID     string       `json:"id"`
	Date   string       `json:"date"`
	Update StatusUpdate `json:"update"`
}

// StatusUpdate is the nested update block of a StatusMessage.
type StatusUpdate struct {
	Status ReviewStatus `json:"status"`
	Reason string       `json:"reason"`
}

// NotificationMessage is the derived event published after a successful
// status update. It is ephemeral and never persisted.
type NotificationMessage struct {
	ID     string       `json:"id"`
	Status ReviewStatus `json:"status"`
	Reason string       `json:"reason"`
}

// Envelope attribute names used for filter evaluation.
const (
	AttrMetadataType = "metadata_type"
	AttrUserType     = "user_type"
)

// UserTypePhotographer is the only user_type admitted by the metadata filter.
const UserTypePhotographer = "Photographer"
