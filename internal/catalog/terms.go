// Package catalog serves categories, genres, titles and title posters.
package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"

	"github.com/ayush/media-reviews/backend/internal/audit"
	"github.com/ayush/media-reviews/backend/internal/middleware"
	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
)

const (
	defaultPageSize = 100
	maxSlugLen      = 50
)

// TermStore persists categories or genres.
type TermStore interface {
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	List(ctx context.Context, skip, limit int) ([]models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

// termKind carries the wording and audit actions that differ between
// categories and genres.
type termKind struct {
	label    string
	resource string
	created  string
	deleted  string
}

var (
	categoryKind = termKind{label: "Category", resource: "category", created: audit.CategoryCreated, deleted: audit.CategoryDeleted}
	genreKind    = termKind{label: "Genre", resource: "genre", created: audit.GenreCreated, deleted: audit.GenreDeleted}
)

// Terms handles the name/slug collections.
type Terms struct {
	store TermStore
	kind  termKind
	audit audit.Recorder
	log   logrus.FieldLogger
}

func NewCategories(store TermStore, rec audit.Recorder, log logrus.FieldLogger) *Terms {
	return &Terms{store: store, kind: categoryKind, audit: rec, log: log.WithField("resource", "category")}
}

func NewGenres(store TermStore, rec audit.Recorder, log logrus.FieldLogger) *Terms {
	return &Terms{store: store, kind: genreKind, audit: rec, log: log.WithField("resource", "genre")}
}

// Create adds a term. A missing slug is derived from the name.
func (h *Terms) Create(w http.ResponseWriter, r *http.Request) {
	var in models.Category
	if !render.Decode(w, r, &in) {
		return
	}
	if in.Slug == "" {
		in.Slug = slug.Make(in.Name)
		if len(in.Slug) > maxSlugLen {
			in.Slug = strings.Trim(in.Slug[:maxSlugLen], "-_")
		}
	}
	if !slug.IsSlug(in.Slug) {
		render.Error(w, http.StatusBadRequest, "Invalid slug")
		return
	}

	created, err := h.store.Create(r.Context(), &in)
	if errors.Is(err, models.ErrConflict) {
		render.Error(w, http.StatusBadRequest, h.kind.label+" already exist")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("create term")
		render.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	h.audit.Record(r.Context(), middleware.CurrentUser(r.Context()), h.kind.created, h.kind.resource, created.Slug)
	render.JSON(w, http.StatusCreated, created)
}

// List pages through terms with ?skip= and ?limit=.
func (h *Terms) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := render.Page(w, r, defaultPageSize)
	if !ok {
		return
	}
	terms, err := h.store.List(r.Context(), skip, limit)
	if err != nil {
		h.log.WithError(err).Error("list terms")
		render.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	render.JSON(w, http.StatusOK, terms)
}

// Delete removes the term with the given slug.
func (h *Terms) Delete(w http.ResponseWriter, r *http.Request) {
	s := chi.URLParam(r, "slug")
	err := h.store.DeleteBySlug(r.Context(), s)
	if errors.Is(err, models.ErrNotFound) {
		render.Error(w, http.StatusNotFound, h.kind.label+" not found")
		return
	}
	if err != nil {
		h.log.WithError(err).Error("delete term")
		render.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	h.audit.Record(r.Context(), middleware.CurrentUser(r.Context()), h.kind.deleted, h.kind.resource, s)
	render.NoContent(w)
}
