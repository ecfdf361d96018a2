// Package audit records who changed what and exposes the recent history to
// administrators.
package audit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
)

// Actions recorded by the feature handlers.
const (
	UserSignedUp    = "USER_SIGNED_UP"
	UserUpdated     = "USER_UPDATED"
	CategoryCreated = "CATEGORY_CREATED"
	CategoryDeleted = "CATEGORY_DELETED"
	GenreCreated    = "GENRE_CREATED"
	GenreDeleted    = "GENRE_DELETED"
	TitleCreated    = "TITLE_CREATED"
	TitleUpdated    = "TITLE_UPDATED"
	TitleDeleted    = "TITLE_DELETED"
	PosterUploaded  = "POSTER_UPLOADED"
	ReviewCreated   = "REVIEW_CREATED"
	ReviewUpdated   = "REVIEW_UPDATED"
	ReviewDeleted   = "REVIEW_DELETED"
	CommentCreated  = "COMMENT_CREATED"
	CommentUpdated  = "COMMENT_UPDATED"
	CommentDeleted  = "COMMENT_DELETED"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Store persists audit events.
type Store interface {
	Insert(ctx context.Context, ev *models.AuditEvent) error
	Recent(ctx context.Context, limit int64) ([]models.AuditEvent, error)
}

// Recorder is what feature handlers call after a successful mutation.
type Recorder interface {
	Record(ctx context.Context, actor *models.User, action, resource, resourceID string)
}

// Trail writes events to a Store. A failed write is logged and otherwise
// ignored: the mutation it describes has already happened.
type Trail struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewTrail(store Store, log logrus.FieldLogger) *Trail {
	return &Trail{store: store, log: log, now: time.Now}
}

func (t *Trail) Record(ctx context.Context, actor *models.User, action, resource, resourceID string) {
	ev := &models.AuditEvent{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		At:         t.now().UTC(),
	}
	if actor != nil {
		ev.ActorID = actor.ID
		ev.Actor = actor.Username
	}
	// The client may already be gone; the event should still land.
	if err := t.store.Insert(context.WithoutCancel(ctx), ev); err != nil {
		t.log.WithError(err).WithFields(logrus.Fields{
			"action":      action,
			"resource":    resource,
			"resource_id": resourceID,
		}).Warn("audit write failed")
	}
}

// Handler serves the audit history.
type Handler struct {
	store Store
	log   logrus.FieldLogger
}

func NewHandler(store Store, log logrus.FieldLogger) *Handler {
	return &Handler{store: store, log: log}
}

// List returns the most recent events, newest first. ?limit= defaults to 50
// and is capped at 500.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			render.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLimit)
	}

	events, err := h.store.Recent(r.Context(), int64(limit))
	if err != nil {
		h.log.WithError(err).Error("list audit events")
		render.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	render.JSON(w, http.StatusOK, events)
}
