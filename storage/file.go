package storage

import (
	"fmt"
	"os"

	"filehost/logger"
	"filehost/models"
)

// File is a hydrated file record plus its resolved on-disk location. The
// path is always recomputed from storageDir and id, never persisted.
type File struct {
	models.FileRecord
	path string
}

// Path returns the on-disk location of the stored bytes.
func (f *File) Path() string {
	return f.path
}

// IsVisible reports whether the file may be served. Soft-deleted files stay
// on disk and in the store but are invisible.
func (f *File) IsVisible() bool {
	return !f.Deleted
}

// PublicURL returns the path a client retrieves this file from.
func (f *File) PublicURL() string {
	return "/" + f.ID
}

// Buffer reads the full stored bytes into memory. ErrBytesMissing when the
// metadata outlived the bytes.
func (f *File) Buffer() ([]byte, error) {
	buf, err := os.ReadFile(f.path)
	if err != nil {
		logger.Warn("%s: could not read storage file '%s': %v", f.ID, f.path, err)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", f.ID, ErrBytesMissing)
		}
		return nil, fmt.Errorf("read storage file %s: %w", f.ID, err)
	}
	return buf, nil
}
