package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/auth"
	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/store/memory"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

type fixture struct {
	eng    *gatehouse.Engine
	issuer *auth.Issuer
	svc    *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	eng, err := gatehouse.NewEngine(gatehouse.WithStore(datastore.New(memory.New())))
	require.NoError(t, err)

	_, err = eng.InsertRole(ctx, "Admin")
	require.NoError(t, err)
	_, err = eng.InsertPermission(ctx, "Delete *")
	require.NoError(t, err)
	ok, err := eng.RegisterRoleToAction(ctx, "DeleteUser", "Admin")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = eng.RegisterPermissionToAction(ctx, "DeleteUser", "Delete *")
	require.NoError(t, err)
	require.True(t, ok)

	issuer, err := auth.NewIssuer(auth.Config{Secret: testSecret, TTL: time.Hour})
	require.NoError(t, err)

	hash := func(pw string) (string, error) { return auth.HashPasswordCost(pw, 4) }
	return &fixture{eng: eng, issuer: issuer, svc: auth.NewService(eng, issuer, auth.WithHasher(hash))}
}

func (f *fixture) login(t *testing.T, username, roleName string) (string, int64) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Register(ctx, username, "pw", roleName)
	require.NoError(t, err)
	tok, err := f.svc.Login(ctx, username, "pw")
	require.NoError(t, err)
	p, err := f.issuer.Parse(tok.AccessToken)
	require.NoError(t, err)
	return tok.AccessToken, p.UserID
}

func (f *fixture) chain(action string) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return Authenticate(f.issuer)(SessionHandler(f.eng)(AuthorizeHandler(f.eng, action)(ok)))
}

func do(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, "/users/1", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAnonymousUnprotectedActionPasses(t *testing.T) {
	f := newFixture(t)
	rec := do(f.chain("Ping"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnonymousProtectedActionDenied(t *testing.T) {
	f := newFixture(t)
	rec := do(f.chain("DeleteUser"), "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "access denied", body["error"])
	assert.Equal(t, "DeleteUser", body["action"])
	assert.Equal(t, []any{"Admin"}, body["missing_roles"])
	assert.Equal(t, []any{"Delete *"}, body["missing_permissions"])
	assert.Equal(t, "all", body["require"])
}

func TestRoleWithoutPermissionDenied(t *testing.T) {
	f := newFixture(t)
	token, _ := f.login(t, "alice", "Admin")

	rec := do(f.chain("DeleteUser"), token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{}, body["missing_roles"])
	assert.Equal(t, []any{"Delete *"}, body["missing_permissions"])
}

func TestGrantedCallerPasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ok, err := f.eng.AssignPermissionToRole(ctx, "Delete *", "Admin")
	require.NoError(t, err)
	require.True(t, ok)

	token, _ := f.login(t, "alice", "Admin")
	rec := do(f.chain("DeleteUser"), token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggedOutTokenRejected(t *testing.T) {
	f := newFixture(t)
	token, userID := f.login(t, "alice", "Admin")

	_, err := f.svc.Logout(context.Background(), userID)
	require.NoError(t, err)

	rec := do(f.chain("Ping"), token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session expired", decode(t, rec)["error"])
}

func TestInvalidTokenRejected(t *testing.T) {
	f := newFixture(t)

	rec := do(f.chain("Ping"), "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	f.chain("Ping").ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewDenialDefaults(t *testing.T) {
	d := NewDenial(&gatehouse.Decision{Action: "X"})
	assert.NotNil(t, d.MissingRoles)
	assert.NotNil(t, d.MissingPermissions)
	assert.Equal(t, "all", d.Require)
}

func TestRouteAction(t *testing.T) {
	assert.Equal(t, "DELETE /v1/users/:userId", RouteAction("delete", "/v1/users/:userId"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req, nil))

	// Without trusted proxies the header is the client's word only.
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "10.0.0.1", clientIP(req, nil))

	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.7"})
	require.NoError(t, err)

	// A spoofed left-most entry is skipped; the hop the proxy saw wins.
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 203.0.113.9, 192.0.2.7")
	assert.Equal(t, "203.0.113.9", clientIP(req, trusted))

	// An untrusted peer's header is ignored.
	req.RemoteAddr = "203.0.113.50:4000"
	assert.Equal(t, "203.0.113.50", clientIP(req, trusted))

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}

func TestAuthenticateAuditsPeerAddress(t *testing.T) {
	cfg := gatehouse.DefaultConfig()
	on := true
	cfg.AuditDecisions = &on
	s := datastore.New(memory.New())
	eng, err := gatehouse.NewEngine(gatehouse.WithStore(s), gatehouse.WithConfig(cfg))
	require.NoError(t, err)
	issuer, err := auth.NewIssuer(auth.Config{Secret: testSecret, TTL: time.Hour})
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Authenticate(issuer)(AuthorizeHandler(eng, "Ping")(ok))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.50:4000"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	logs, err := s.ListCheckLogs(gatehouse.WithTenant(context.Background(), 1), nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "203.0.113.50", logs[0].RequestIP)
}
