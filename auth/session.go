package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"filehost/models"
)

// sessionTTL is how long an issued token stays valid.
const sessionTTL = 24 * time.Hour

// Claims carried by a session token. Privileges are snapshotted at login;
// authorization-sensitive paths re-load the user instead of trusting them.
type Claims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Privs  []string `json:"privs"`
	jwt.RegisteredClaims
}

// Sessions issues and validates signed session tokens for the HTTP layer.
type Sessions struct {
	secret []byte
}

// NewSessions creates a token issuer with the given HMAC secret.
func NewSessions(secret string) *Sessions {
	return &Sessions{secret: []byte(secret)}
}

// Issue signs a token for the user.
func (s *Sessions) Issue(u *models.UserRecord) (string, int64, error) {
	expires := time.Now().Add(sessionTTL)

	claims := &Claims{
		UserID: u.ID,
		Name:   u.Name,
		Privs:  u.Privs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, expires.Unix(), nil
}

// Validate parses and verifies a token string.
func (s *Sessions) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
