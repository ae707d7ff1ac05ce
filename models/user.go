package models

import (
	"encoding/json"
	"fmt"
)

// Privilege strings. PrivWildcard is never accepted from callers; it is set
// only on the bootstrap admin record.
const (
	PrivAdmin    = "admin"
	PrivUpload   = "upload"
	PrivWildcard = "*"
)

// UserRecord is the persisted metadata of one account.
type UserRecord struct {
	SchemaVersion int      `json:"schema_version"`
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Privs         []string `json:"privs"`
	CreateTime    int64    `json:"create_time"` // unix milliseconds
	DeleteTime    int64    `json:"delete_time,omitempty"`
	Deleted       bool     `json:"deleted"`
	// IPs maps observed client addresses to hit counts. Informational only.
	IPs map[string]int `json:"ips,omitempty"`
}

// HasPriv reports whether the user holds priv. The wildcard grants every
// privilege, including ones outside the valid set.
func (u *UserRecord) HasPriv(priv string) bool {
	for _, p := range u.Privs {
		if p == priv || p == PrivWildcard {
			return true
		}
	}
	return false
}

func (u *UserRecord) CanUpload() bool {
	return u.HasPriv(PrivUpload)
}

func (u *UserRecord) IsAdmin() bool {
	return u.HasPriv(PrivAdmin)
}

// Encode serialises the record as a versioned JSON document.
func (u *UserRecord) Encode() ([]byte, error) {
	u.SchemaVersion = SchemaVersion
	doc, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode user record %s: %w", u.ID, err)
	}
	return doc, nil
}

// DecodeUserRecord deserialises a document produced by Encode.
func DecodeUserRecord(doc []byte) (*UserRecord, error) {
	var u UserRecord
	if err := json.Unmarshal(doc, &u); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	if u.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("decode user record %s: unknown schema version %d", u.ID, u.SchemaVersion)
	}
	return &u, nil
}

// LoginRequest identifies a caller by their account id. The id itself is the
// credential; there are no passwords in this model.
type LoginRequest struct {
	User string `json:"user"`
}

// LoginResponse carries the session token issued after a successful login.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expires_at"`
	User      *UserRecord `json:"user"`
}

// CreateUserRequest is the admin-facing payload for adding an account.
type CreateUserRequest struct {
	Name  string   `json:"name"`
	Privs []string `json:"privs"`
}
