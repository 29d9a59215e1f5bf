package users

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
)

type fakeUserStore struct {
	rows   map[int64]*store.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{rows: map[int64]*store.User{}}
}

func (f *fakeUserStore) Create(ctx context.Context, params store.CreateUserParams) (*store.User, error) {
	for _, user := range f.rows {
		if user.Email == params.Email {
			return nil, store.ErrDuplicateEmail
		}
	}
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

func (f *fakeUserStore) List(ctx context.Context) ([]*store.User, error) {
	var users []*store.User
	for _, user := range f.rows {
		users = append(users, user)
	}
	return users, nil
}

func (f *fakeUserStore) Update(ctx context.Context, id int64, params store.UpdateUserParams) (*store.User, error) {
	user, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Email != nil {
		for _, other := range f.rows {
			if other.ID != id && other.Email == *params.Email {
				return nil, store.ErrDuplicateEmail
			}
		}
		user.Email = *params.Email
	}
	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.UserName != nil {
		user.UserName = *params.UserName
	}
	if params.PasswordHash != nil {
		user.PasswordHash = *params.PasswordHash
	}
	return user, nil
}

func (f *fakeUserStore) Delete(ctx context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeUserStore) TouchLogin(ctx context.Context, id int64, ip string) error {
	return nil
}

func newController(users store.UserStore) *UserController {
	h := handlers.NewHandler(users, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewUserController(h)
}

func requestContext(t *testing.T, method, path, body string) *router.Context {
	t.Helper()
	if body == "" {
		body = "{}"
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	return router.NewContext(httptest.NewRecorder(), req, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func asResponse(t *testing.T, result any) *router.Response {
	t.Helper()
	response, ok := result.(*router.Response)
	if !ok {
		t.Fatalf("handler result = %T (%v), want *router.Response", result, result)
	}
	return response
}

func TestRegister(t *testing.T) {
	users := newFakeUserStore()
	controller := newController(users)

	c := requestContext(t, "POST", "/create-user",
		`{"name":"Ada Lovelace","user_name":"ada","email":"ada@example.com","password":"engine1843"}`)
	response := asResponse(t, controller.Create(c))
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d (message %q)", response.StatusCode, http.StatusCreated, response.Message)
	}

	user := response.Data.(*store.User)
	if user.Email != "ada@example.com" {
		t.Errorf("email = %q, want %q", user.Email, "ada@example.com")
	}
	if user.PasswordHash == "engine1843" {
		t.Error("password stored in the clear, want hash")
	}
	if ok, _ := security.VerifyPassword("engine1843", user.PasswordHash); !ok {
		t.Error("stored hash does not verify against the password")
	}
}

func TestRegisterValidation(t *testing.T) {
	controller := newController(newFakeUserStore())

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{"email":"ada@example.com"}`},
		{"bad email", `{"name":"Ada","user_name":"ada","email":"not-an-email","password":"engine1843"}`},
		{"bad username", `{"name":"Ada","user_name":"a","email":"ada@example.com","password":"engine1843"}`},
		{"username with spaces", `{"name":"Ada","user_name":"ada lovelace","email":"ada@example.com","password":"engine1843"}`},
		{"short password", `{"name":"Ada","user_name":"ada","email":"ada@example.com","password":"short"}`},
		{"invalid json", `{"name":`},
	}
	for _, tt := range tests {
		c := requestContext(t, "POST", "/create-user", tt.body)
		response := asResponse(t, controller.Create(c))
		if response.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", tt.name, response.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	controller := newController(users)

	body := `{"name":"Ada","user_name":"ada","email":"ada@example.com","password":"engine1843"}`
	asResponse(t, controller.Create(requestContext(t, "POST", "/create-user", body)))

	again := `{"name":"Other","user_name":"other","email":"ada@example.com","password":"different1"}`
	response := asResponse(t, controller.Create(requestContext(t, "POST", "/create-user", again)))
	if response.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusConflict)
	}
	if response.Message != "Email already registered" {
		t.Errorf("message = %q, want %q", response.Message, "Email already registered")
	}
}

func TestShowUser(t *testing.T) {
	users := newFakeUserStore()
	users.Create(context.Background(), store.CreateUserParams{
		Name: "Ada", UserName: "ada", Email: "ada@example.com", PasswordHash: "x",
	})
	controller := newController(users)

	c := requestContext(t, "GET", "/get-user/1", "")
	c.Params["id"] = "1"
	response := asResponse(t, controller.Show(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}

	c = requestContext(t, "GET", "/get-user/9", "")
	c.Params["id"] = "9"
	response = asResponse(t, controller.Show(c))
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("missing user status = %d, want %d", response.StatusCode, http.StatusNotFound)
	}
}

func TestUpdateSelfOnly(t *testing.T) {
	users := newFakeUserStore()
	users.Create(context.Background(), store.CreateUserParams{
		Name: "Ada", UserName: "ada", Email: "ada@example.com", PasswordHash: "x",
	})
	users.Create(context.Background(), store.CreateUserParams{
		Name: "Grace", UserName: "grace", Email: "grace@example.com", PasswordHash: "x",
	})
	controller := newController(users)

	// Caller 1 touching user 2 gets a 404, not a 403, so the response
	// does not reveal which ids exist.
	c := requestContext(t, "PUT", "/update-user/2", `{"name":"Hijack"}`)
	c.Params["id"] = "2"
	c.SetIdentity(router.Identity{"id": int64(1)})
	response := asResponse(t, controller.Update(c))
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("foreign update status = %d, want %d", response.StatusCode, http.StatusNotFound)
	}

	c = requestContext(t, "PUT", "/update-user/1", `{"name":"Ada King"}`)
	c.Params["id"] = "1"
	c.SetIdentity(router.Identity{"id": int64(1)})
	response = asResponse(t, controller.Update(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("self update status = %d, want %d (message %q)", response.StatusCode, http.StatusOK, response.Message)
	}
	if got := users.rows[1].Name; got != "Ada King" {
		t.Errorf("name = %q, want %q", got, "Ada King")
	}
}

func TestUpdateValidation(t *testing.T) {
	users := newFakeUserStore()
	users.Create(context.Background(), store.CreateUserParams{
		Name: "Ada", UserName: "ada", Email: "ada@example.com", PasswordHash: "x",
	})
	controller := newController(users)

	tests := []struct {
		name string
		body string
	}{
		{"empty name", `{"name":"  "}`},
		{"bad email", `{"email":"nope"}`},
		{"bad username", `{"user_name":"a"}`},
		{"short password", `{"password":"short"}`},
	}
	for _, tt := range tests {
		c := requestContext(t, "PUT", "/update-user/1", tt.body)
		c.Params["id"] = "1"
		c.SetIdentity(router.Identity{"id": int64(1)})
		response := asResponse(t, controller.Update(c))
		if response.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", tt.name, response.StatusCode, http.StatusBadRequest)
		}
	}

	c := requestContext(t, "PUT", "/update-user/1", `{}`)
	c.Params["id"] = "1"
	c.SetIdentity(router.Identity{"id": int64(1)})
	response := asResponse(t, controller.Update(c))
	if response.Message != "Nothing to update" {
		t.Errorf("empty payload message = %q, want %q", response.Message, "Nothing to update")
	}
}

func TestRemoveSelfOnly(t *testing.T) {
	users := newFakeUserStore()
	users.Create(context.Background(), store.CreateUserParams{
		Name: "Ada", UserName: "ada", Email: "ada@example.com", PasswordHash: "x",
	})
	controller := newController(users)

	c := requestContext(t, "DELETE", "/delete-user/1", "")
	c.Params["id"] = "1"
	c.SetIdentity(router.Identity{"id": int64(2)})
	response := asResponse(t, controller.Remove(c))
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want %d", response.StatusCode, http.StatusNotFound)
	}
	if len(users.rows) != 1 {
		t.Fatalf("rows = %d after foreign delete, want 1", len(users.rows))
	}

	c = requestContext(t, "DELETE", "/delete-user/1", "")
	c.Params["id"] = "1"
	c.SetIdentity(router.Identity{"id": int64(1)})
	response = asResponse(t, controller.Remove(c))
	if response.StatusCode != http.StatusOK {
		t.Fatalf("self delete status = %d, want %d", response.StatusCode, http.StatusOK)
	}
	if len(users.rows) != 0 {
		t.Errorf("rows = %d after self delete, want 0", len(users.rows))
	}
}
