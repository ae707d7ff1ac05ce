// Package auth owns user accounts and privilege checks. It mirrors the
// storage engine's shape minus the byte-moving and minus any cache: privilege
// checks must reflect current store state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"filehost/database"
	"filehost/logger"
	"filehost/models"
	"filehost/shortid"
)

// ErrNotFound is returned when no user matches a lookup.
var ErrNotFound = errors.New("user not found")

// BootstrapUserName is the account probed (and created) at process start.
const BootstrapUserName = "admin"

// validPrivs is the fixed set accepted from callers. The wildcard is not in
// it; only Bootstrap writes a wildcard record.
var validPrivs = map[string]bool{
	models.PrivAdmin:  true,
	models.PrivUpload: true,
}

// Auth is the account engine.
type Auth struct {
	users *database.Collection
}

// New creates the engine over the user collection.
func New(users *database.Collection) *Auth {
	return &Auth{users: users}
}

// IsValidPriv reports whether priv may be granted by a caller.
func (a *Auth) IsValidPriv(priv string) bool {
	return validPrivs[priv]
}

// UserInfo describes an account to create.
type UserInfo struct {
	Name  string
	Privs []string
}

// AddUser validates and persists a new account. Unknown privileges fail
// validation naming the offending value; a taken name fails the same way.
func (a *Auth) AddUser(ctx context.Context, info UserInfo) (*models.UserRecord, error) {
	if info.Name == "" {
		return nil, &models.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(info.Privs) == 0 {
		return nil, &models.ValidationError{Field: "privs", Reason: "at least one privilege is required"}
	}
	for _, priv := range info.Privs {
		if !a.IsValidPriv(priv) {
			return nil, &models.ValidationError{Field: "privs", Value: priv, Reason: "not a valid privilege"}
		}
	}

	return a.insertUser(ctx, info)
}

// insertUser persists without privilege validation; Bootstrap depends on
// that to write the wildcard record.
func (a *Auth) insertUser(ctx context.Context, info UserInfo) (*models.UserRecord, error) {
	id, err := shortid.New()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	u := &models.UserRecord{
		ID:         id,
		Name:       info.Name,
		Privs:      info.Privs,
		CreateTime: time.Now().UnixMilli(),
		IPs:        map[string]int{},
	}

	logger.Debug("generated id for user '%s': %s", u.Name, u.ID)

	doc, err := u.Encode()
	if err != nil {
		return nil, err
	}
	rec := database.Record{
		ID:      u.ID,
		Name:    u.Name,
		Created: u.CreateTime,
		Doc:     doc,
	}
	if err := a.users.Insert(ctx, rec); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, &models.ValidationError{Field: "name", Value: info.Name, Reason: "already taken"}
		}
		return nil, fmt.Errorf("persist user %s: %w", u.ID, err)
	}

	return u, nil
}

// BootstrapResult reports what Bootstrap found or did. When Created is true
// the user's id is the only copy of the credential; surface it immediately.
type BootstrapResult struct {
	Created bool
	User    *models.UserRecord
}

// Bootstrap ensures an account named admin exists, synthesizing one with the
// wildcard privilege when absent. Idempotent: a second call finds the first
// call's record.
func (a *Auth) Bootstrap(ctx context.Context) (BootstrapResult, error) {
	u, err := a.GetUserByName(ctx, BootstrapUserName)
	if err == nil {
		return BootstrapResult{Created: false, User: u}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return BootstrapResult{}, err
	}

	u, err = a.insertUser(ctx, UserInfo{
		Name:  BootstrapUserName,
		Privs: []string{models.PrivWildcard},
	})
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("create bootstrap admin: %w", err)
	}
	return BootstrapResult{Created: true, User: u}, nil
}

// GetUserByID looks an account up by id.
func (a *Auth) GetUserByID(ctx context.Context, id string) (*models.UserRecord, error) {
	return a.findOne(ctx, "id", id)
}

// GetUserByName looks an account up by name.
func (a *Auth) GetUserByName(ctx context.Context, name string) (*models.UserRecord, error) {
	return a.findOne(ctx, "name", name)
}

func (a *Auth) findOne(ctx context.Context, field, value string) (*models.UserRecord, error) {
	rec, err := a.users.FindOne(ctx, field, value, false)
	if err != nil {
		if errors.Is(err, database.ErrNoDocument) {
			return nil, ErrNotFound
		}
		logger.Error("user lookup by %s failed: %v", field, err)
		return nil, ErrNotFound
	}

	u, err := models.DecodeUserRecord(rec.Doc)
	if err != nil {
		logger.Error("could not hydrate user %s: %v", rec.ID, err)
		return nil, ErrNotFound
	}
	return u, nil
}

// GetAllUsers returns every account, oldest first.
func (a *Auth) GetAllUsers(ctx context.Context) ([]*models.UserRecord, error) {
	recs, err := a.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]*models.UserRecord, 0, len(recs))
	for _, rec := range recs {
		u, err := models.DecodeUserRecord(rec.Doc)
		if err != nil {
			logger.Warn("skipping undecodable user %s: %v", rec.ID, err)
			continue
		}
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreateTime < users[j].CreateTime
	})
	return users, nil
}
