// Package reviews serves scored reviews of titles and the comment threads
// under them.
package reviews

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ayush/media-reviews/backend/internal/audit"
	"github.com/ayush/media-reviews/backend/internal/auth"
	"github.com/ayush/media-reviews/backend/internal/middleware"
	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
)

const (
	msgTitleNotFound   = "Title not found"
	msgReviewNotFound  = "Review is not found"
	msgCommentNotFound = "No such comment."
	msgNotAllowed      = "Not allowed."
	msgDatabaseError   = "database error"
)

// Store defines the persistence the review and comment handlers need.
type Store interface {
	GetTitle(ctx context.Context, id int64) (*models.Title, error)

	CreateReview(ctx context.Context, r *models.Review) (*models.Review, error)
	GetReview(ctx context.Context, titleID, reviewID int64) (*models.Review, error)
	ListReviews(ctx context.Context, titleID int64) ([]models.Review, error)
	UpdateReview(ctx context.Context, r *models.Review) error
	DeleteReview(ctx context.Context, titleID, reviewID int64) error

	CreateComment(ctx context.Context, c *models.Comment) (*models.Comment, error)
	GetComment(ctx context.Context, reviewID, commentID int64) (*models.Comment, error)
	ListComments(ctx context.Context, reviewID int64, skip, limit int) ([]models.Comment, error)
	UpdateComment(ctx context.Context, c *models.Comment) error
	DeleteComment(ctx context.Context, reviewID, commentID int64) error
}

// RatingInvalidator drops a title's cached rating after its reviews change.
type RatingInvalidator interface {
	Invalidate(ctx context.Context, titleID int64) error
}

// Handler holds review and comment HTTP handlers.
type Handler struct {
	store   Store
	ratings RatingInvalidator
	audit   audit.Recorder
	log     logrus.FieldLogger
}

func NewHandler(store Store, ratings RatingInvalidator, rec audit.Recorder, log logrus.FieldLogger) *Handler {
	return &Handler{store: store, ratings: ratings, audit: rec, log: log}
}

// owner wraps an author id so the permission predicates can compare it.
func owner(authorID int64) *models.User {
	return &models.User{ID: authorID}
}

func (h *Handler) dbError(w http.ResponseWriter, err error, msg string) {
	h.log.WithError(err).Error(msg)
	render.Error(w, http.StatusInternalServerError, msgDatabaseError)
}

func (h *Handler) invalidate(ctx context.Context, titleID int64) {
	if err := h.ratings.Invalidate(ctx, titleID); err != nil {
		h.log.WithError(err).WithField("title_id", titleID).Warn("rating cache invalidate failed")
	}
}

// titleID reads {titleID} and checks the title exists.
func (h *Handler) titleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := render.PathID(w, r, "titleID", msgTitleNotFound)
	if !ok {
		return 0, false
	}
	_, err := h.store.GetTitle(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		render.Error(w, http.StatusNotFound, msgTitleNotFound)
		return 0, false
	}
	if err != nil {
		h.dbError(w, err, "get title")
		return 0, false
	}
	return id, true
}

// loadReview reads {titleID}/{reviewID} and fetches the review.
func (h *Handler) loadReview(w http.ResponseWriter, r *http.Request) (*models.Review, bool) {
	titleID, ok := render.PathID(w, r, "titleID", msgReviewNotFound)
	if !ok {
		return nil, false
	}
	reviewID, ok := render.PathID(w, r, "reviewID", msgReviewNotFound)
	if !ok {
		return nil, false
	}
	review, err := h.store.GetReview(r.Context(), titleID, reviewID)
	if errors.Is(err, models.ErrNotFound) {
		render.Error(w, http.StatusNotFound, msgReviewNotFound)
		return nil, false
	}
	if err != nil {
		h.dbError(w, err, "get review")
		return nil, false
	}
	return review, true
}

// ListReviews returns every review of a title.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	titleID, ok := h.titleID(w, r)
	if !ok {
		return
	}
	reviews, err := h.store.ListReviews(r.Context(), titleID)
	if err != nil {
		h.dbError(w, err, "list reviews")
		return
	}
	render.JSON(w, http.StatusOK, reviews)
}

// GetReview returns one review.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, ok := h.loadReview(w, r)
	if !ok {
		return
	}
	render.JSON(w, http.StatusOK, review)
}

// CreateReview posts a review as the caller.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	titleID, ok := h.titleID(w, r)
	if !ok {
		return
	}
	var in models.ReviewInput
	if !render.Decode(w, r, &in) {
		return
	}

	actor := middleware.CurrentUser(r.Context())
	review, err := h.store.CreateReview(r.Context(), &models.Review{
		TitleID:  titleID,
		AuthorID: actor.ID,
		Text:     in.Text,
		Score:    in.Score,
	})
	if err != nil {
		h.dbError(w, err, "create review")
		return
	}

	h.invalidate(r.Context(), titleID)
	h.audit.Record(r.Context(), actor, audit.ReviewCreated, "review", strconv.FormatInt(review.ID, 10))
	render.JSON(w, http.StatusCreated, review)
}

// UpdateReview lets the author or staff edit a review.
func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	review, ok := h.loadReview(w, r)
	if !ok {
		return
	}
	actor := middleware.CurrentUser(r.Context())
	if !auth.IsAdminOrModeratorOrSelf(actor, owner(review.AuthorID)) {
		render.Error(w, http.StatusForbidden, msgNotAllowed)
		return
	}
	var in models.ReviewInput
	if !render.Decode(w, r, &in) {
		return
	}

	review.Text, review.Score = in.Text, in.Score
	if err := h.store.UpdateReview(r.Context(), review); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			render.Error(w, http.StatusNotFound, msgReviewNotFound)
			return
		}
		h.dbError(w, err, "update review")
		return
	}

	h.invalidate(r.Context(), review.TitleID)
	h.audit.Record(r.Context(), actor, audit.ReviewUpdated, "review", strconv.FormatInt(review.ID, 10))
	render.JSON(w, http.StatusOK, review)
}

// DeleteReview removes a review and its comments.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	review, ok := h.loadReview(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteReview(r.Context(), review.TitleID, review.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		h.dbError(w, err, "delete review")
		return
	}

	h.invalidate(r.Context(), review.TitleID)
	h.audit.Record(r.Context(), middleware.CurrentUser(r.Context()), audit.ReviewDeleted, "review", strconv.FormatInt(review.ID, 10))
	render.NoContent(w)
}
