package reviews

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayush/media-reviews/backend/internal/audit"
	"github.com/ayush/media-reviews/backend/internal/auth"
	"github.com/ayush/media-reviews/backend/internal/middleware"
	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
)

const defaultCommentPage = 100

// loadOwnedComment resolves the review, then {commentID} within it, and
// checks the caller may change the comment.
func (h *Handler) loadOwnedComment(w http.ResponseWriter, r *http.Request) (*models.Comment, bool) {
	review, ok := h.loadReview(w, r)
	if !ok {
		return nil, false
	}
	commentID, ok := render.PathID(w, r, "commentID", msgCommentNotFound)
	if !ok {
		return nil, false
	}
	comment, err := h.store.GetComment(r.Context(), review.ID, commentID)
	if errors.Is(err, models.ErrNotFound) {
		render.Error(w, http.StatusNotFound, msgCommentNotFound)
		return nil, false
	}
	if err != nil {
		h.dbError(w, err, "get comment")
		return nil, false
	}
	if !auth.IsAdminOrModeratorOrSelf(middleware.CurrentUser(r.Context()), owner(comment.AuthorID)) {
		render.Error(w, http.StatusForbidden, msgNotAllowed)
		return nil, false
	}
	return comment, true
}

// ListComments pages through a review's comments with ?skip= and ?limit=.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	review, ok := h.loadReview(w, r)
	if !ok {
		return
	}
	skip, limit, ok := render.Page(w, r, defaultCommentPage)
	if !ok {
		return
	}
	comments, err := h.store.ListComments(r.Context(), review.ID, skip, limit)
	if err != nil {
		h.dbError(w, err, "list comments")
		return
	}
	render.JSON(w, http.StatusOK, comments)
}

// CreateComment replies to a review as the caller.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	review, ok := h.loadReview(w, r)
	if !ok {
		return
	}
	var in models.CommentInput
	if !render.Decode(w, r, &in) {
		return
	}

	actor := middleware.CurrentUser(r.Context())
	comment, err := h.store.CreateComment(r.Context(), &models.Comment{
		ReviewID: review.ID,
		AuthorID: actor.ID,
		Text:     in.Text,
	})
	if err != nil {
		h.dbError(w, err, "create comment")
		return
	}

	h.audit.Record(r.Context(), actor, audit.CommentCreated, "comment", strconv.FormatInt(comment.ID, 10))
	render.JSON(w, http.StatusCreated, comment)
}

// UpdateComment lets the author or staff edit a comment.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.loadOwnedComment(w, r)
	if !ok {
		return
	}
	var in models.CommentInput
	if !render.Decode(w, r, &in) {
		return
	}

	comment.Text = in.Text
	if err := h.store.UpdateComment(r.Context(), comment); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			render.Error(w, http.StatusNotFound, msgCommentNotFound)
			return
		}
		h.dbError(w, err, "update comment")
		return
	}

	h.audit.Record(r.Context(), middleware.CurrentUser(r.Context()), audit.CommentUpdated, "comment", strconv.FormatInt(comment.ID, 10))
	render.JSON(w, http.StatusOK, comment)
}

// DeleteComment lets the author or staff remove a comment.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.loadOwnedComment(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteComment(r.Context(), comment.ReviewID, comment.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		h.dbError(w, err, "delete comment")
		return
	}

	h.audit.Record(r.Context(), middleware.CurrentUser(r.Context()), audit.CommentDeleted, "comment", strconv.FormatInt(comment.ID, 10))
	render.NoContent(w)
}
