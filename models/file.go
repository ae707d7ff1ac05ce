package models

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is stamped into every persisted document so a future format
// change is caught at decode time instead of surfacing as silent field drift.
const SchemaVersion = 1

// FileRecord is the persisted metadata of one stored file. The on-disk path
// of its bytes is never stored; it is always recomputed as storageDir/id.
type FileRecord struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"id"`
	// Name is the original uploaded filename. Untrusted: display and
	// download-filename use only, never path construction.
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	UploadTime int64  `json:"upload_time"` // unix milliseconds
	DeleteTime int64  `json:"delete_time,omitempty"`
	Deleted    bool   `json:"deleted"`
	UploaderIP string `json:"uploader_ip,omitempty"`
}

// Encode serialises the record as a versioned JSON document.
func (r *FileRecord) Encode() ([]byte, error) {
	r.SchemaVersion = SchemaVersion
	doc, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode file record %s: %w", r.ID, err)
	}
	return doc, nil
}

// DecodeFileRecord deserialises a document produced by Encode.
func DecodeFileRecord(doc []byte) (*FileRecord, error) {
	var r FileRecord
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("decode file record: %w", err)
	}
	if r.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("decode file record %s: unknown schema version %d", r.ID, r.SchemaVersion)
	}
	return &r, nil
}

// FileOutcome is one entry of the per-file result list of a batch upload.
type FileOutcome struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // ok, error
	Size    int64  `json:"size,omitempty"`
	URL     string `json:"url,omitempty"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}
