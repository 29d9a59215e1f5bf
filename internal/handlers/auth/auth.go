package auth

import (
	"errors"

	"taskboard/internal/handlers"
	"taskboard/internal/middlewares"
	"taskboard/internal/router"
	"taskboard/internal/security"
	"taskboard/internal/store"
)

// AuthController handles login, logout, and caller identity.
type AuthController struct {
	h *handlers.Handler
}

func NewAuthController(h *handlers.Handler) *AuthController {
	return &AuthController{h: h}
}

// Actions returns the controller's dispatchable methods by name.
func (a *AuthController) Actions() map[string]router.HandlerFunc {
	return map[string]router.HandlerFunc{
		"login":  a.Login,
		"logout": a.Logout,
		"me":     a.Me,
	}
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// Login authenticates email+password and issues a bearer token.
// Unknown email is a 404, wrong password a 401. A caller presenting
// a live token is told so and gets no new session.
func (a *AuthController) Login(c *router.Context) any {
	if _, ok := c.BearerToken(); ok && c.CurrentUser() != nil {
		return router.OK("Already authenticated", nil)
	}

	var req LoginRequest
	if err := c.DecodeJSON(&req); err != nil {
		return router.BadRequest("Invalid request payload")
	}
	if req.Email == "" || req.Password == "" {
		return router.BadRequest("Email and password are required")
	}

	user, err := a.h.Users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.h.Logger.Warn("login attempt with unknown email", "email", req.Email)
			return router.NotFound("User not found")
		}
		return err
	}

	correct, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		a.h.Logger.Error("password verification error", "error", err)
		return err
	}
	if !correct {
		a.h.Logger.Warn("invalid password attempt", "email", req.Email)
		return router.Unauthorized("Invalid credentials")
	}

	if err := a.h.Users.TouchLogin(c.Request.Context(), user.ID, middlewares.ClientIP(c.Request)); err != nil {
		a.h.Logger.Warn("failed to record login", "error", err, "user_id", user.ID)
	}

	token, expiresAt, err := a.h.Sessions.IssueSession(c.Request.Context(), user.ID, req.RememberMe)
	if err != nil {
		return err
	}

	a.h.Logger.Info("user logged in", "user_id", user.ID, "email", user.Email)

	return router.OK("Login successful", map[string]any{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user,
	})
}

// Logout deletes every session row carrying the presented token.
func (a *AuthController) Logout(c *router.Context) any {
	token, ok := c.BearerToken()
	if !ok {
		return router.Unauthorized("Unauthenticated")
	}

	if err := a.h.Sessions.RevokeToken(c.Request.Context(), token); err != nil {
		return err
	}

	return router.OK("Logged out", nil)
}

// Me returns the caller identity resolved by the auth unit.
func (a *AuthController) Me(c *router.Context) any {
	identity := c.CurrentUser()
	if identity == nil {
		return router.Unauthorized("Unauthenticated")
	}
	return router.OK("", identity)
}
