package imagereview

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrRecordNotFound indicates an image record was not found
	ErrRecordNotFound = errors.New("image record not found")

	// ErrUnsupportedFileType indicates an upload with a disallowed extension
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// RecordError represents an error from a record store operation
type RecordError struct {
	ID  string
	Op  string
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record operation %s failed for image %s: %v", e.Op, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// ObjectError represents an error from an object store operation
type ObjectError struct {
	Bucket string
	Key    string
	Op     string
	Err    error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("object operation %s failed for %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}
