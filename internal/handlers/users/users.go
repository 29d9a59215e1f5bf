package users

import (
	"errors"
	"strconv"

	"taskboard/internal/handlers"
	"taskboard/internal/router"
	"taskboard/internal/security"
	"taskboard/internal/store"
)

// UserController handles registration and self-service profile
// management. Registration is open; update and remove only touch the
// caller's own record.
type UserController struct {
	h *handlers.Handler
}

func NewUserController(h *handlers.Handler) *UserController {
	return &UserController{h: h}
}

// Actions returns the controller's dispatchable methods by name.
func (u *UserController) Actions() map[string]router.HandlerFunc {
	return map[string]router.HandlerFunc{
		"index":  u.Index,
		"show":   u.Show,
		"create": u.Create,
		"update": u.Update,
		"remove": u.Remove,
	}
}

// Index lists all users. Password hashes never serialize.
func (u *UserController) Index(c *router.Context) any {
	users, err := u.h.Users.List(c.Request.Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*store.User{}
	}
	return router.OK("", users)
}

// Show returns one user by id.
func (u *UserController) Show(c *router.Context) any {
	id, response := userID(c)
	if response != nil {
		return response
	}

	user, err := u.h.Users.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return router.NotFound("User not found")
		}
		return err
	}
	return router.OK("", user)
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

const minPasswordLength = 8

// Create registers a new account.
func (u *UserController) Create(c *router.Context) any {
	var req RegisterRequest
	if err := c.DecodeJSON(&req); err != nil {
		return router.BadRequest("Invalid request payload")
	}

	name := u.h.Sanitizer.Sanitize(req.Name)
	userName := u.h.Sanitizer.Sanitize(req.UserName)

	switch {
	case name == "" || userName == "" || req.Email == "" || req.Password == "":
		return router.BadRequest("Name, user_name, email and password are required")
	case !security.IsValidEmail(req.Email):
		return router.BadRequest("Invalid email address")
	case !security.IsValidUsername(userName):
		return router.BadRequest("Invalid user_name: use 3-32 letters, digits, underscores or hyphens")
	}
	if err := security.CheckPasswordLength(req.Password, minPasswordLength); err != nil {
		return router.BadRequest("Password must be at least 8 characters")
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user, err := u.h.Users.Create(c.Request.Context(), store.CreateUserParams{
		Name:         name,
		UserName:     userName,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return router.NewResponse(409, "Email already registered", nil)
		}
		return err
	}

	u.h.Logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return router.Created("User registered", user)
}

// UpdateUserRequest is the partial profile update payload.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	UserName *string `json:"user_name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Update edits the caller's own record. Any other id responds 404.
func (u *UserController) Update(c *router.Context) any {
	id, response := userID(c)
	if response != nil {
		return response
	}
	if id != c.CurrentUserID() {
		return router.NotFound("User not found")
	}

	var req UpdateUserRequest
	if err := c.DecodeJSON(&req); err != nil {
		return router.BadRequest("Invalid request payload")
	}

	params := store.UpdateUserParams{}
	if req.Name != nil {
		name := u.h.Sanitizer.Sanitize(*req.Name)
		if name == "" {
			return router.BadRequest("Name cannot be empty")
		}
		params.Name = &name
	}
	if req.UserName != nil {
		userName := u.h.Sanitizer.Sanitize(*req.UserName)
		if !security.IsValidUsername(userName) {
			return router.BadRequest("Invalid user_name: use 3-32 letters, digits, underscores or hyphens")
		}
		params.UserName = &userName
	}
	if req.Email != nil {
		if !security.IsValidEmail(*req.Email) {
			return router.BadRequest("Invalid email address")
		}
		params.Email = req.Email
	}
	if req.Password != nil {
		if err := security.CheckPasswordLength(*req.Password, minPasswordLength); err != nil {
			return router.BadRequest("Password must be at least 8 characters")
		}
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			return err
		}
		params.PasswordHash = &hash
	}

	if params.Empty() {
		return router.OK("Nothing to update", nil)
	}

	user, err := u.h.Users.Update(c.Request.Context(), id, params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return router.NotFound("User not found")
		case errors.Is(err, store.ErrDuplicateEmail):
			return router.NewResponse(409, "Email already registered", nil)
		}
		return err
	}
	return router.OK("User updated", user)
}

// Remove deletes the caller's own record. Sessions and tasks go with
// it through the schema's cascades.
func (u *UserController) Remove(c *router.Context) any {
	id, response := userID(c)
	if response != nil {
		return response
	}
	if id != c.CurrentUserID() {
		return router.NotFound("User not found")
	}

	if err := u.h.Users.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return router.NotFound("User not found")
		}
		return err
	}

	u.h.Logger.Info("user removed", "user_id", id)
	return router.OK("User removed", nil)
}

// userID parses the {id} path parameter.
func userID(c *router.Context) (int64, *router.Response) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, router.BadRequest("Invalid user id")
	}
	return id, nil
}
