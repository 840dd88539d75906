package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"facility-checklist/internal/testutil"
)

func newTestRouter(t *testing.T) (http.Handler, *TokenManager) {
	t.Helper()
	tokens := newTestManager(t)
	h := NewHandler(testutil.OpenStore(t), tokens, zap.NewNop())

	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(tokens.Middleware).Get("/me", h.Me)
	return r, tokens
}

func registerJSON(t *testing.T, r http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func loginForm(t *testing.T, r http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterDuplicateConflict(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := registerJSON(t, r, "alice", "wonderland")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = registerJSON(t, r, "alice", "another-pass")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already registered", decode(t, rec)["detail"])
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusUnprocessableEntity, registerJSON(t, r, "al", "wonderland").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, registerJSON(t, r, "alice smith", "wonderland").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, registerJSON(t, r, "alice", "abc").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, registerJSON(t, r, "alice", strings.Repeat("x", 73)).Code)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginIssuesTokenForUser(t *testing.T) {
	r, tokens := newTestRouter(t)
	require.Equal(t, http.StatusCreated, registerJSON(t, r, "alice", "wonderland").Code)

	rec := loginForm(t, r, "alice", "wonderland")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "bearer", body["token_type"])
	tok, ok := body["access_token"].(string)
	require.True(t, ok)

	claims, err := tokens.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestLoginFailureDoesNotRevealUsername(t *testing.T) {
	r, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, registerJSON(t, r, "alice", "wonderland").Code)

	wrongPassword := loginForm(t, r, "alice", "looking-glass")
	unknownUser := loginForm(t, r, "mallory", "looking-glass")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestLoginAcceptsJSON(t *testing.T) {
	r, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, registerJSON(t, r, "alice", "wonderland").Code)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"wonderland"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	r, tokens := newTestRouter(t)
	require.Equal(t, http.StatusCreated, registerJSON(t, r, "alice", "wonderland").Code)

	expired := *tokens
	expired.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	expiredTok, err := expired.GenerateToken("alice")
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":   "",
		"no scheme": "token",
		"malformed": "Bearer not-a-jwt",
		"expired":   "Bearer " + expiredTok,
		"empty":     "Bearer ",
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"), name)
	}

	tok, err := tokens.GenerateToken("alice")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode(t, rec)["username"])
}
