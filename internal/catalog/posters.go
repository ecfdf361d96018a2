package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayush/media-reviews/backend/internal/audit"
	"github.com/ayush/media-reviews/backend/internal/middleware"
	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
)

// MaxPosterBytes bounds an uploaded poster.
const MaxPosterBytes = 5 << 20

func posterKey(titleID int64) string {
	return fmt.Sprintf("titles/%d/%s", titleID, uuid.NewString())
}

// UploadPoster stores the raw request body as the title's poster, replacing
// any previous one.
func (h *Titles) UploadPoster(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		render.Error(w, http.StatusUnsupportedMediaType, "Poster must be an image")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPosterBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		render.Error(w, http.StatusRequestEntityTooLarge, "Poster is too large")
		return
	}
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(data) == 0 {
		render.Error(w, http.StatusBadRequest, "Poster is empty")
		return
	}

	key := posterKey(t.ID)
	if err := h.posters.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), mediaType); err != nil {
		h.log.WithError(err).WithField("key", key).Error("upload poster")
		render.Error(w, http.StatusInternalServerError, "storage error")
		return
	}

	previous := t.PosterKey
	t.PosterKey = key
	if err := h.store.UpdateTitle(r.Context(), t); err != nil {
		h.log.WithError(err).Error("save poster key")
		if rmErr := h.posters.Remove(r.Context(), key); rmErr != nil {
			h.log.WithError(rmErr).WithField("key", key).Warn("remove orphaned poster")
		}
		render.Error(w, http.StatusInternalServerError, msgDatabaseError)
		return
	}
	if previous != "" {
		if err := h.posters.Remove(r.Context(), previous); err != nil {
			h.log.WithError(err).WithField("key", previous).Warn("remove replaced poster")
		}
	}

	h.log.WithFields(logrus.Fields{"title_id": t.ID, "key": key, "bytes": len(data)}).Info("poster uploaded")
	h.audit.Record(r.Context(), middleware.CurrentUser(r.Context()), audit.PosterUploaded, "title", strconv.FormatInt(t.ID, 10))
	render.NoContent(w)
}

// Poster streams the title's poster image.
func (h *Titles) Poster(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	if t.PosterKey == "" {
		render.Error(w, http.StatusNotFound, "No poster")
		return
	}

	obj, contentType, err := h.posters.Get(r.Context(), t.PosterKey)
	if errors.Is(err, models.ErrNotFound) {
		render.Error(w, http.StatusNotFound, "No poster")
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("key", t.PosterKey).Error("download poster")
		render.Error(w, http.StatusInternalServerError, "storage error")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		h.log.WithError(err).Warn("stream poster")
	}
}
