package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is the opaque retrieval miss. It never distinguishes
// never-existed from soft-deleted from store failure, so the existence of
// deleted content does not leak.
var ErrNotFound = errors.New("file not found")

// ErrBytesMissing marks metadata pointing at bytes that are gone from disk
// (removed out-of-band). The divergence is reported, never repaired.
var ErrBytesMissing = errors.New("stored bytes missing")

// UploadErrorReason classifies a per-file upload failure.
type UploadErrorReason string

const (
	UploadTooLarge           UploadErrorReason = "too_large"
	UploadIOFailure          UploadErrorReason = "io_failure"
	UploadPersistenceFailure UploadErrorReason = "persistence_failure"
)

// UploadError is a per-file failure; in a batch it never aborts the
// remaining files.
type UploadError struct {
	Reason UploadErrorReason
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("upload failed (%s)", e.Reason)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
