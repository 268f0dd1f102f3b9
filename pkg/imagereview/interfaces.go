package imagereview

import (
	"context"
)

// RecordStore defines the interface for per-image record persistence.
// Updates are last-write-wins per field with no optimistic concurrency
// control; workers writing disjoint fields never conflict.
type RecordStore interface {
	// Put writes a record unconditionally, overwriting any existing record
	// with the same ID.
	Put(ctx context.Context, record *ImageRecord) error

	// UpdateFields sets the named fields on the record identified by id in a
	// single operation. A missing record is created with just those fields,
	// so a status or metadata update never fails on ordering. Fields not
	// named are left untouched.
	UpdateFields(ctx context.Context, id string, fields map[RecordField]string) error

	// Get retrieves a record by ID, returning ErrRecordNotFound when absent.
	Get(ctx context.Context, id string) (*ImageRecord, error)
}

// ObjectStore defines the narrow slice of the durable object store this core
// relies on: deleting rejected uploads.
type ObjectStore interface {
	// Delete removes an object. Deleting an absent object is not an error.
	Delete(ctx context.Context, bucket, key string) error
}

// EmailSender defines the outbound email transport.
type EmailSender interface {
	Send(ctx context.Context, from, to, subject, htmlBody string) error
}
