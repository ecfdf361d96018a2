package users

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ayush/media-reviews/backend/internal/audit"
	"github.com/ayush/media-reviews/backend/internal/auth"
	"github.com/ayush/media-reviews/backend/internal/middleware"
	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
)

// Store defines the user persistence the handlers need.
type Store interface {
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
}

// Handler holds user HTTP handlers.
type Handler struct {
	store  Store
	hasher auth.PasswordHasher
	audit  audit.Recorder
	log    logrus.FieldLogger
}

func NewHandler(store Store, hasher auth.PasswordHasher, rec audit.Recorder, log logrus.FieldLogger) *Handler {
	return &Handler{store: store, hasher: hasher, audit: rec, log: log}
}

// List returns all users, optionally filtered by ?role=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var role string
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := auth.ParseRole(raw)
		if err != nil {
			render.Error(w, http.StatusBadRequest, "Unknown role")
			return
		}
		role = parsed.String()
	}

	users, err := h.store.ListUsers(r.Context(), role)
	if err != nil {
		h.log.WithError(err).Error("list users")
		render.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	render.JSON(w, http.StatusOK, users)
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, middleware.CurrentUser(r.Context()))
}

// UpdateMe patches the caller's names and password.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if !render.Decode(w, r, &patch) {
		return
	}

	u := *middleware.CurrentUser(r.Context())
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Password != nil {
		hashed, err := h.hasher.Hash(*patch.Password)
		if errors.Is(err, auth.ErrPasswordTooLong) {
			render.Error(w, http.StatusBadRequest, "Password is too long")
			return
		}
		if err != nil {
			h.log.WithError(err).Error("hash password")
			render.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		u.HashedPassword = hashed
	}

	if err := h.store.UpdateUser(r.Context(), &u); err != nil {
		h.log.WithError(err).WithField("user_id", u.ID).Error("update user")
		render.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	h.audit.Record(r.Context(), &u, audit.UserUpdated, "user", strconv.FormatInt(u.ID, 10))
	render.JSON(w, http.StatusOK, u)
}

// Get returns one user by username. The route's staff scope gate, which
// checks the token's role claim, is the only access check.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, models.ErrNotFound) {
		render.Error(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("get user")
		render.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	render.JSON(w, http.StatusOK, u)
}
