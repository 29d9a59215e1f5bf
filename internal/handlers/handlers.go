package handlers

import (
	"log/slog"

	"taskboard/internal/auth"
	"taskboard/internal/security"
	"taskboard/internal/store"
)

// Handler bundles the dependencies every controller needs.
type Handler struct {
	Users     store.UserStore
	Tasks     store.TaskStore
	Sessions  *auth.Service
	Sanitizer *security.Sanitizer
	Logger    *slog.Logger
}

func NewHandler(users store.UserStore, tasks store.TaskStore, sessions *auth.Service, sanitizer *security.Sanitizer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if sanitizer == nil {
		sanitizer = security.NewSanitizer(nil)
	}
	return &Handler{
		Users:     users,
		Tasks:     tasks,
		Sessions:  sessions,
		Sanitizer: sanitizer,
		Logger:    logger,
	}
}
