// Package render writes JSON responses and decodes validated request bodies.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes {"detail": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"detail": msg})
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// ValidationError lists per-field problems keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, msg := range e.Fields {
		parts = append(parts, msg)
	}
	return strings.Join(parts, " ")
}

// Decode reads a JSON body into dst (a struct pointer) and validates its tags.
// On failure it writes the 400/422 response itself and returns false.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := Validate(dst); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			JSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": ve.Fields})
			return false
		}
		Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// Validate checks struct tags on s (a struct pointer).
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	structType := reflect.TypeOf(s)
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		name := e.StructField()
		if f, ok := structType.FieldByName(e.StructField()); ok {
			if tag := strings.Split(f.Tag.Get("json"), ",")[0]; tag != "" {
				name = tag
			}
		}
		fields[name] = message(name, e)
	}
	return &ValidationError{Fields: fields}
}

func message(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("The field '%s' is required.", field)
	case "email":
		return fmt.Sprintf("The field '%s' must be a valid email address.", field)
	case "min":
		return fmt.Sprintf("The field '%s' must be at least %s characters long.", field, e.Param())
	case "max":
		return fmt.Sprintf("The field '%s' must be no longer than %s characters.", field, e.Param())
	case "gte":
		return fmt.Sprintf("The field '%s' must be greater than or equal to %s.", field, e.Param())
	case "lte":
		return fmt.Sprintf("The field '%s' must be less than or equal to %s.", field, e.Param())
	default:
		return fmt.Sprintf("Field '%s' is invalid: %s", field, e.Tag())
	}
}

// MaxPageSize caps ?limit= on list endpoints.
const MaxPageSize = 1000

// Page reads ?skip= and ?limit=. On a malformed value it writes a 400 and
// returns ok=false.
func Page(w http.ResponseWriter, r *http.Request, defaultLimit int) (skip, limit int, ok bool) {
	skip, limit = 0, defaultLimit
	q := r.URL.Query()
	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "skip must be a non-negative integer")
			return 0, 0, false
		}
		skip = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = min(n, MaxPageSize)
	}
	return skip, limit, true
}

// PathID parses the chi URL parameter name as a positive integer id. A value
// that can't name a row gets a 404 with notFound as the detail.
func PathID(w http.ResponseWriter, r *http.Request, name, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		Error(w, http.StatusNotFound, notFound)
		return 0, false
	}
	return id, true
}
