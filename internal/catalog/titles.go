package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ayush/media-reviews/backend/internal/audit"
	"github.com/ayush/media-reviews/backend/internal/middleware"
	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
)

const (
	msgTitleNotFound  = "Title not found."
	msgTitleExists    = "Title already exist"
	msgNoSuchCategory = "No such Category"
	msgDatabaseError  = "database error"
)

// TitleStore persists titles and computes their ratings.
type TitleStore interface {
	CreateTitle(ctx context.Context, t *models.Title) (*models.Title, error)
	GetTitle(ctx context.Context, id int64) (*models.Title, error)
	ListTitles(ctx context.Context) ([]models.Title, error)
	UpdateTitle(ctx context.Context, t *models.Title) error
	DeleteTitle(ctx context.Context, id int64) error
	TitleRating(ctx context.Context, titleID int64) (*float64, error)
}

// RatingCache holds computed ratings between review changes.
type RatingCache interface {
	Get(ctx context.Context, titleID int64) (rating *float64, ok bool, err error)
	Set(ctx context.Context, titleID int64, rating *float64) error
	Invalidate(ctx context.Context, titleID int64) error
}

// PosterStore keeps poster images.
type PosterStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, key string) error
}

// Titles holds title and poster handlers.
type Titles struct {
	store      TitleStore
	categories TermStore
	ratings    RatingCache
	posters    PosterStore
	audit      audit.Recorder
	log        logrus.FieldLogger
}

func NewTitles(store TitleStore, categories TermStore, ratings RatingCache, posters PosterStore, rec audit.Recorder, log logrus.FieldLogger) *Titles {
	return &Titles{
		store:      store,
		categories: categories,
		ratings:    ratings,
		posters:    posters,
		audit:      rec,
		log:        log.WithField("resource", "title"),
	}
}

// rating returns the title's mean score, consulting the cache first. Cache
// failures fall back to the database.
func (h *Titles) rating(ctx context.Context, titleID int64) (*float64, error) {
	cached, ok, err := h.ratings.Get(ctx, titleID)
	if err != nil {
		h.log.WithError(err).WithField("title_id", titleID).Warn("rating cache read failed")
	} else if ok {
		return cached, nil
	}

	rating, err := h.store.TitleRating(ctx, titleID)
	if err != nil {
		return nil, err
	}
	if err := h.ratings.Set(ctx, titleID, rating); err != nil {
		h.log.WithError(err).WithField("title_id", titleID).Warn("rating cache write failed")
	}
	return rating, nil
}

func (h *Titles) withRating(ctx context.Context, t *models.Title) error {
	rating, err := h.rating(ctx, t.ID)
	if err != nil {
		return err
	}
	t.Rating = rating
	return nil
}

// resolveCategory looks a category up by display name. ok is false when the
// response has already been written.
func (h *Titles) resolveCategory(ctx context.Context, w http.ResponseWriter, ref *models.CategoryRef) (*models.Category, bool) {
	c, err := h.categories.GetByName(ctx, ref.Name)
	if errors.Is(err, models.ErrNotFound) {
		render.Error(w, http.StatusBadRequest, msgNoSuchCategory)
		return nil, false
	}
	if err != nil {
		h.log.WithError(err).Error("load category")
		render.Error(w, http.StatusInternalServerError, msgDatabaseError)
		return nil, false
	}
	return c, true
}

// load fetches the title named by the {titleID} path parameter.
func (h *Titles) load(w http.ResponseWriter, r *http.Request) (*models.Title, bool) {
	id, ok := render.PathID(w, r, "titleID", msgTitleNotFound)
	if !ok {
		return nil, false
	}
	t, err := h.store.GetTitle(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		render.Error(w, http.StatusNotFound, msgTitleNotFound)
		return nil, false
	}
	if err != nil {
		h.log.WithError(err).WithField("title_id", id).Error("get title")
		render.Error(w, http.StatusInternalServerError, msgDatabaseError)
		return nil, false
	}
	return t, true
}

// List returns every title with its rating.
func (h *Titles) List(w http.ResponseWriter, r *http.Request) {
	titles, err := h.store.ListTitles(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list titles")
		render.Error(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}
	for i := range titles {
		if err := h.withRating(r.Context(), &titles[i]); err != nil {
			h.log.WithError(err).Error("title rating")
			render.Error(w, http.StatusInternalServerError, msgDatabaseError)
			return
		}
	}
	render.JSON(w, http.StatusOK, titles)
}

// Get returns one title with its rating.
func (h *Titles) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.withRating(r.Context(), t); err != nil {
		h.log.WithError(err).Error("title rating")
		render.Error(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}
	render.JSON(w, http.StatusOK, t)
}

// Create adds a title in an existing category.
func (h *Titles) Create(w http.ResponseWriter, r *http.Request) {
	var in models.TitleInput
	if !render.Decode(w, r, &in) {
		return
	}
	category, ok := h.resolveCategory(r.Context(), w, in.Category)
	if !ok {
		return
	}

	created, err := h.store.CreateTitle(r.Context(), &models.Title{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
		Category:    category,
	})
	if errors.Is(err, models.ErrConflict) {
		render.Error(w, http.StatusBadRequest, msgTitleExists)
		return
	}
	if err != nil {
		h.log.WithError(err).Error("create title")
		render.Error(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}

	h.audit.Record(r.Context(), middleware.CurrentUser(r.Context()), audit.TitleCreated, "title", strconv.FormatInt(created.ID, 10))
	render.JSON(w, http.StatusCreated, created)
}

// Update applies the fields present in the body.
func (h *Titles) Update(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	var patch models.TitlePatch
	if !render.Decode(w, r, &patch) {
		return
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Year != nil {
		t.Year = *patch.Year
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		category, ok := h.resolveCategory(r.Context(), w, patch.Category)
		if !ok {
			return
		}
		t.Category = category
	}

	err := h.store.UpdateTitle(r.Context(), t)
	switch {
	case errors.Is(err, models.ErrConflict):
		render.Error(w, http.StatusBadRequest, msgTitleExists)
		return
	case errors.Is(err, models.ErrNotFound):
		render.Error(w, http.StatusNotFound, msgTitleNotFound)
		return
	case err != nil:
		h.log.WithError(err).Error("update title")
		render.Error(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}
	if err := h.withRating(r.Context(), t); err != nil {
		h.log.WithError(err).Error("title rating")
		render.Error(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}

	h.audit.Record(r.Context(), middleware.CurrentUser(r.Context()), audit.TitleUpdated, "title", strconv.FormatInt(t.ID, 10))
	render.JSON(w, http.StatusOK, t)
}

// Delete removes a title, its reviews (by cascade) and its poster.
func (h *Titles) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteTitle(r.Context(), t.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		h.log.WithError(err).Error("delete title")
		render.Error(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}

	if t.PosterKey != "" {
		if err := h.posters.Remove(r.Context(), t.PosterKey); err != nil {
			h.log.WithError(err).WithField("key", t.PosterKey).Warn("remove poster")
		}
	}
	if err := h.ratings.Invalidate(r.Context(), t.ID); err != nil {
		h.log.WithError(err).Warn("rating cache invalidate failed")
	}

	h.audit.Record(r.Context(), middleware.CurrentUser(r.Context()), audit.TitleDeleted, "title", strconv.FormatInt(t.ID, 10))
	render.NoContent(w)
}
