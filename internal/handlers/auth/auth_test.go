package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskboard/internal/handlers"
	"taskboard/internal/router"
	"taskboard/internal/security"
	"taskboard/internal/store"

	sessions "taskboard/internal/auth"
)

type fakeUserStore struct {
	rows   map[int64]*store.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{rows: map[int64]*store.User{}}
}

func (f *fakeUserStore) Create(ctx context.Context, params store.CreateUserParams) (*store.User, error) {
	f.nextID++
	user := &store.User{
		ID:           f.nextID,
		Name:         params.Name,
		UserName:     params.UserName,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		RegisteredAt: time.Now(),
	}
	f.rows[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int64) (*store.User, error) {
	user, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	for _, user := range f.rows {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) List(ctx context.Context) ([]*store.User, error) { return nil, nil }

func (f *fakeUserStore) Update(ctx context.Context, id int64, params store.UpdateUserParams) (*store.User, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeUserStore) Delete(ctx context.Context, id int64) error { return nil }

func (f *fakeUserStore) TouchLogin(ctx context.Context, id int64, ip string) error { return nil }

type fakeSessionStore struct {
	rows   map[string]*store.Session
	nextID int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{rows: map[string]*store.Session{}}
}

func (f *fakeSessionStore) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*store.Session, error) {
	f.nextID++
	session := &store.Session{
		ID:        f.nextID,
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	f.rows[token] = session
	return session, nil
}

func (f *fakeSessionStore) GetByToken(ctx context.Context, token string) (*store.Session, error) {
	session, ok := f.rows[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return session, nil
}

func (f *fakeSessionStore) DeleteByToken(ctx context.Context, token string) error {
	delete(f.rows, token)
	return nil
}

func (f *fakeSessionStore) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

type fixture struct {
	controller   *AuthController
	users        *fakeUserStore
	sessionStore *fakeSessionStore
	service      *sessions.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := newFakeUserStore()
	sessionStore := newFakeSessionStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := sessions.NewService(sessionStore, users, nil, nil, &sessions.Config{
		SessionTTL:    time.Hour,
		RememberMeTTL: 72 * time.Hour,
		CacheTTL:      time.Minute,
		Logger:        logger,
	})
	h := handlers.NewHandler(users, nil, service, nil, logger)
	return &fixture{
		controller:   NewAuthController(h),
		users:        users,
		sessionStore: sessionStore,
		service:      service,
	}
}

func (f *fixture) registerUser(t *testing.T, email, password string) *store.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user, err := f.users.Create(context.Background(), store.CreateUserParams{
		Name: "Ada", UserName: "ada", Email: email, PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return user
}

func loginContext(t *testing.T, resolver router.IdentityResolver, body string) *router.Context {
	t.Helper()
	req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:5000"
	return router.NewContext(httptest.NewRecorder(), req, resolver, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func asResponse(t *testing.T, result any) *router.Response {
	t.Helper()
	response, ok := result.(*router.Response)
	if !ok {
		t.Fatalf("handler result = %T (%v), want *router.Response", result, result)
	}
	return response
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "ada@example.com", "engine1843")

	c := loginContext(t, nil, `{"email":"ada@example.com","password":"engine1843"}`)
	response := asResponse(t, f.controller.Login(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d (message %q)", response.StatusCode, http.StatusOK, response.Message)
	}
	if response.Message != "Login successful" {
		t.Errorf("message = %q, want %q", response.Message, "Login successful")
	}

	data := response.Data.(map[string]any)
	token, ok := data["token"].(string)
	if !ok || len(token) != 32 {
		t.Fatalf("token = %v, want 32-char string", data["token"])
	}
	if _, ok := f.sessionStore.rows[token]; !ok {
		t.Error("issued token has no session row")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newFixture(t)

	c := loginContext(t, nil, `{"email":"ghost@example.com","password":"whatever1"}`)
	response := asResponse(t, f.controller.Login(c))
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusNotFound)
	}
	if response.Message != "User not found" {
		t.Errorf("message = %q, want %q", response.Message, "User not found")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "ada@example.com", "engine1843")

	c := loginContext(t, nil, `{"email":"ada@example.com","password":"wrong password"}`)
	response := asResponse(t, f.controller.Login(c))
	if response.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusUnauthorized)
	}
	if response.Message != "Invalid credentials" {
		t.Errorf("message = %q, want %q", response.Message, "Invalid credentials")
	}
	if len(f.sessionStore.rows) != 0 {
		t.Errorf("sessions = %d after failed login, want 0", len(f.sessionStore.rows))
	}
}

func TestLoginMissingFields(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`{}`, `{"email":"ada@example.com"}`, `{"password":"engine1843"}`, `{"email":`} {
		c := loginContext(t, nil, body)
		response := asResponse(t, f.controller.Login(c))
		if response.StatusCode != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, response.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestLoginRememberMe(t *testing.T) {
	f := newFixture(t)
	f.registerUser(t, "ada@example.com", "engine1843")

	c := loginContext(t, nil, `{"email":"ada@example.com","password":"engine1843","remember_me":true}`)
	response := asResponse(t, f.controller.Login(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}

	data := response.Data.(map[string]any)
	expiresAt := data["expires_at"].(time.Time)
	if remaining := time.Until(expiresAt); remaining < 71*time.Hour {
		t.Errorf("remember-me session expires in %v, want ~72h", remaining)
	}
}

func TestLoginAlreadyAuthenticated(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "ada@example.com", "engine1843")

	token, _, err := f.service.IssueSession(context.Background(), user.ID, false)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	c := loginContext(t, f.service, `{"email":"ada@example.com","password":"engine1843"}`)
	c.Request.Header.Set("Authorization", "Bearer "+token)
	response := asResponse(t, f.controller.Login(c))
	if response.Message != "Already authenticated" {
		t.Errorf("message = %q, want %q", response.Message, "Already authenticated")
	}
	if len(f.sessionStore.rows) != 1 {
		t.Errorf("sessions = %d, want 1 (no new session issued)", len(f.sessionStore.rows))
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "ada@example.com", "engine1843")
	token, _, err := f.service.IssueSession(context.Background(), user.ID, false)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	req := httptest.NewRequest("POST", "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := router.NewContext(httptest.NewRecorder(), req, f.service, slog.New(slog.NewTextHandler(io.Discard, nil)))

	response := asResponse(t, f.controller.Logout(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	if len(f.sessionStore.rows) != 0 {
		t.Errorf("sessions = %d after logout, want 0", len(f.sessionStore.rows))
	}
}

func TestLogoutWithoutToken(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("POST", "/logout", nil)
	c := router.NewContext(httptest.NewRecorder(), req, f.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	response := asResponse(t, f.controller.Logout(c))
	if response.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusUnauthorized)
	}
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	user := f.registerUser(t, "ada@example.com", "engine1843")
	token, _, err := f.service.IssueSession(context.Background(), user.ID, false)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := router.NewContext(httptest.NewRecorder(), req, f.service, slog.New(slog.NewTextHandler(io.Discard, nil)))

	response := asResponse(t, f.controller.Me(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	identity := response.Data.(router.Identity)
	if got := identity["email"]; got != "ada@example.com" {
		t.Errorf("identity email = %v, want ada@example.com", got)
	}

	req = httptest.NewRequest("GET", "/me", nil)
	c = router.NewContext(httptest.NewRecorder(), req, f.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	response = asResponse(t, f.controller.Me(c))
	if response.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want %d", response.StatusCode, http.StatusUnauthorized)
	}
}
