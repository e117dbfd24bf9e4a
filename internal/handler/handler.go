// Package handler exposes the JSON API consumed by the mobile client.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/intervox/intervox/internal/catalog"
	"github.com/intervox/intervox/internal/coordinator"
	"github.com/intervox/intervox/internal/directory"
	appI18n "github.com/intervox/intervox/internal/i18n"
	"github.com/intervox/intervox/internal/ledger"
	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/tasklog"
)

// Config holds the handler's HTTP-level settings.
type Config struct {
	SecureCookies bool
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	users    *directory.Directory
	sessions *directory.Sessions
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	tasklog  *tasklog.Log
	coord    *coordinator.Coordinator
	config   Config
}

// New creates a new Handler.
func New(users *directory.Directory, sessions *directory.Sessions, cat *catalog.Catalog,
	led *ledger.Ledger, log *tasklog.Log, coord *coordinator.Coordinator, cfg Config) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		catalog:  cat,
		ledger:   led,
		tasklog:  log,
		coord:    coord,
		config:   cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/signup", h.handleSignup)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/me", h.handleMe)

		r.Route("/interviews", func(r chi.Router) {
			r.Get("/", h.handleListInterviews)
			r.Get("/{interviewID}", h.handleGetInterview)
			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.RoleAdmin))
				r.Post("/", h.handleCreateInterview)
				r.Put("/{interviewID}", h.handleUpdateInterview)
				r.Delete("/{interviewID}", h.handleDeleteInterview)
			})
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Use(requireRole(model.RoleAdmin, model.RoleReviewer))
			r.Get("/", h.handleListSubmissions)
			r.Post("/{submissionID}/review", h.handleAttachReview)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/mine", h.handleMyTasks)
			r.Post("/{taskID}/submit", h.handleSubmitResponse)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(model.RoleAdmin))
				r.Get("/", h.handleListTasks)
				r.Post("/", h.handleCreateTask)
				r.Get("/search", h.handleSearchTasks)
				r.Get("/overdue", h.handleOverdueTasks)
				r.Get("/stats", h.handleTaskStats)
				r.Post("/bulk/assign", h.handleBulkAssign)
				r.Post("/bulk/archive", h.handleBulkArchive)
				r.Get("/{taskID}", h.handleGetTask)
				r.Patch("/{taskID}", h.handleUpdateTask)
				r.Post("/{taskID}/assign", h.handleAssign)
				r.Post("/{taskID}/archive", h.handleArchiveTask)
				r.Post("/{taskID}/complete", h.handleCompleteTask)
				r.Get("/{taskID}/submissions", h.handleTaskSubmissions)
			})
		})

		r.Route("/log", func(r chi.Router) {
			r.Use(requireRole(model.RoleAdmin))
			r.Get("/", h.handleListLog)
			r.Get("/stats", h.handleLogStats)
			r.Post("/cleanup", h.handleLogCleanup)
		})
	})
}

type apiResponse struct {
	Data   any    `json:"data,omitempty"`
	Notice string `json:"notice,omitempty"`
}

type apiError struct {
	Error  string `json:"error"`
	Notice string `json:"notice"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError maps the service error taxonomy onto HTTP statuses and
// attaches a localized notice for the client to display.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	noticeID := "StorageFailure"
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
		noticeID = "NotFound"
	case errors.Is(err, model.ErrDuplicateID):
		status = http.StatusConflict
		noticeID = "DuplicateID"
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
		noticeID = "ValidationFailed"
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	respondJSON(w, status, apiError{
		Error:  err.Error(),
		Notice: appI18n.T(r.Context(), noticeID),
	})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.ErrValidation
	}
	return nil
}
