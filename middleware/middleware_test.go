package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filehost/auth"
	"filehost/models"
)

// adminChain mirrors the wiring of the authenticated API routes: CORS outside
// Session so preflights are answered before authentication runs.
func adminChain(sessions *auth.Sessions, handler http.HandlerFunc) http.HandlerFunc {
	return Chain(handler, Logging, CORS, Session(sessions), JSONHeader)
}

func TestPreflightAnsweredBeforeAuthentication(t *testing.T) {
	sessions := auth.NewSessions("test-secret")
	reached := false
	chain := adminChain(sessions, func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	chain(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.False(t, reached, "preflight must not reach the handler")
}

func TestSessionRejectsMissingToken(t *testing.T) {
	sessions := auth.NewSessions("test-secret")
	chain := adminChain(sessions, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	chain(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// The rejection still carries CORS headers for the browser.
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionStoresClaimsInContext(t *testing.T) {
	sessions := auth.NewSessions("test-secret")
	token, _, err := sessions.Issue(&models.UserRecord{
		ID:    "abcdefg1234",
		Name:  "bob",
		Privs: []string{models.PrivUpload},
	})
	require.NoError(t, err)

	var gotID, gotName string
	chain := adminChain(sessions, func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = r.Context().Value("user_id").(string)
		gotName, _ = r.Context().Value("user_name").(string)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	chain(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abcdefg1234", gotID)
	assert.Equal(t, "bob", gotName)
}

func TestClientIP(t *testing.T) {
	mk := func(remote string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		return req
	}

	assert.Equal(t, "1.2.3.4", ClientIP(mk("1.2.3.4:5678")))
	assert.Equal(t, "::1", ClientIP(mk("[::1]:5678")))
	assert.Equal(t, "::1", ClientIP(mk("::1")), "bare IPv6 address stays intact")
	assert.Equal(t, "2001:db8::2", ClientIP(mk("2001:db8::2")))

	req := mk("1.2.3.4:5678")
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	assert.Equal(t, "9.9.9.9", ClientIP(req), "first forwarded hop wins")

	req = mk("1.2.3.4:5678")
	req.Header.Set("X-Real-IP", "8.8.8.8")
	assert.Equal(t, "8.8.8.8", ClientIP(req))
}
