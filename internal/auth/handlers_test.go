package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedAuthEvent struct {
	userID  uint
	action  string
	success bool
}

type stubAuditor struct {
	mu     sync.Mutex
	events []recordedAuthEvent
}

func (a *stubAuditor) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedAuthEvent{userID, action, success})
}

// testClient keeps cookies and the CSRF token between requests.
type testClient struct {
	t         *testing.T
	router    *gin.Engine
	cookies   map[string]*http.Cookie
	csrfToken string
}

func (tc *testClient) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	tc.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range tc.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(tc.cookies, c.Name)
			continue
		}
		tc.cookies[c.Name] = c
	}
	if token := w.Header().Get(CSRFTokenHeader); token != "" {
		tc.csrfToken = token
	}
	return w
}

func (tc *testClient) withCSRF() map[string]string {
	return map[string]string{CSRFTokenHeader: tc.csrfToken}
}

func setupAuthRouter(t *testing.T) (*testClient, *Service, *stubAuditor) {
	t.Helper()
	db := setupTestDB(t)
	cfg := testAuthConfig()
	svc := NewService(db.DB, cfg)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	key, err := SessionSecretBytes("")
	require.NoError(t, err)

	auditor := &stubAuditor{}
	ac := NewAuthController(svc, sm, cfg, auditor)
	t.Cleanup(ac.Stop)
	mw := NewMiddleware(svc, sm, cfg, nil)

	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.Use(sm.SessionLoadSave())
	router.Use(CSRFMiddleware(key, false, svc))
	router.Use(mw.Handler())
	ac.RegisterRoutes(router.Group("/api/auth"), mw.RequireAuth())

	client := &testClient{t: t, router: router, cookies: map[string]*http.Cookie{}}
	return client, svc, auditor
}

func TestAuthFlow_SignupSessionLogout(t *testing.T) {
	client, _, auditor := setupAuthRouter(t)

	w := client.do(http.MethodGet, "/api/auth/csrf", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, client.csrfToken)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	// Unsafe requests without the token are rejected.
	w = client.do(http.MethodPost, "/api/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"correct-horse-battery"}`, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = client.do(http.MethodPost, "/api/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"correct-horse-battery"}`, client.withCSRF())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
	assert.NotContains(t, w.Body.String(), "password_hash")
	require.Contains(t, client.cookies, "session")

	w = client.do(http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"auth_type":"session"`)

	w = client.do(http.MethodPost, "/api/auth/logout", "", client.withCSRF())
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = client.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	auditor.mu.Lock()
	defer auditor.mu.Unlock()
	require.Len(t, auditor.events, 2)
	assert.Equal(t, "signup", auditor.events[0].action)
	assert.Equal(t, "logout", auditor.events[1].action)
}

func TestAuthFlow_SignupValidation(t *testing.T) {
	client, _, _ := setupAuthRouter(t)
	client.do(http.MethodGet, "/api/auth/csrf", "", nil)

	w := client.do(http.MethodPost, "/api/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"short"}`, client.withCSRF())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"validation_error"`)

	w = client.do(http.MethodPost, "/api/auth/signup", `{}`, client.withCSRF())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthFlow_LoginAndRateLimit(t *testing.T) {
	client, svc, _ := setupAuthRouter(t)
	_, err := svc.Signup("alice", "alice@example.com", testPassword)
	require.NoError(t, err)

	client.do(http.MethodGet, "/api/auth/csrf", "", nil)

	w := client.do(http.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"correct-horse-battery"}`, client.withCSRF())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, client.cookies, "session")

	bad := `{"username":"alice","password":"wrong-password-123"}`
	for i := 0; i < 3; i++ {
		w = client.do(http.MethodPost, "/api/auth/login", bad, client.withCSRF())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w = client.do(http.MethodPost, "/api/auth/login", bad, client.withCSRF())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestAuthFlow_BearerSkipsCSRF(t *testing.T) {
	client, svc, _ := setupAuthRouter(t)
	user, err := svc.Signup("alice", "alice@example.com", testPassword)
	require.NoError(t, err)
	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)

	w := client.do(http.MethodPost, "/api/auth/token", "", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"token"`)

	// The old token was replaced.
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthFlow_AnonymousTokenRequestRejected(t *testing.T) {
	client, _, _ := setupAuthRouter(t)
	client.do(http.MethodGet, "/api/auth/csrf", "", nil)

	w := client.do(http.MethodPost, "/api/auth/token", "", client.withCSRF())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
