package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Identity is the projection of user columns resolved from a session token
type Identity map[string]any

// IdentityResolver resolves a bearer token to an identity.
// A nil identity with a nil error means the token does not map to a
// live session.
type IdentityResolver interface {
	ResolveToken(ctx context.Context, token string) (Identity, error)
}

// Context carries per-request state through the middleware chain and
// into the handler. All dispatch bookkeeping lives here so nothing is
// shared between concurrent requests.
type Context struct {
	Writer  http.ResponseWriter
	Request *http.Request
	Params  map[string]string
	Logger  *slog.Logger

	resolver IdentityResolver

	// identity memo: resolved lazily on first access, including the
	// "no identity" outcome so failed lookups are not repeated
	identity         Identity
	identityResolved bool

	dispatched bool
}

// NewContext creates a request context for a single dispatch
func NewContext(w http.ResponseWriter, req *http.Request, resolver IdentityResolver, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Writer:   w,
		Request:  req,
		Params:   map[string]string{},
		Logger:   logger,
		resolver: resolver,
	}
}

// Param returns a captured path parameter, or "" when absent
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// BearerToken extracts the token from the Authorization header.
// Only the Bearer scheme is accepted.
func (c *Context) BearerToken() (string, bool) {
	const prefix = "Bearer "
	header := c.Request.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// CurrentUser resolves and memoizes the caller identity for this
// request. Returns nil when no valid session exists.
func (c *Context) CurrentUser() Identity {
	if c.identityResolved {
		return c.identity
	}
	c.identityResolved = true

	if c.resolver == nil {
		return nil
	}
	token, ok := c.BearerToken()
	if !ok {
		return nil
	}

	identity, err := c.resolver.ResolveToken(c.Request.Context(), token)
	if err != nil {
		c.Logger.Error("identity resolution failed", "error", err)
		return nil
	}
	c.identity = identity
	return c.identity
}

// CurrentUserField returns a single column of the caller identity,
// or nil when unauthenticated or the field is absent
func (c *Context) CurrentUserField(field string) any {
	identity := c.CurrentUser()
	if identity == nil {
		return nil
	}
	return identity[field]
}

// CurrentUserID returns the caller's user id, or 0 when unauthenticated
func (c *Context) CurrentUserID() int64 {
	switch v := c.CurrentUserField("id").(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// SetIdentity stores a pre-resolved identity (used by the auth unit so
// the handler does not repeat the session lookup)
func (c *Context) SetIdentity(identity Identity) {
	c.identity = identity
	c.identityResolved = true
}

// DecodeJSON decodes the request body into v
func (c *Context) DecodeJSON(v any) error {
	if c.Request.Body == nil {
		return fmt.Errorf("empty request body")
	}
	if err := json.NewDecoder(c.Request.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
