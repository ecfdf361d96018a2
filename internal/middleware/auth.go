package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ayush/media-reviews/backend/internal/auth"
	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
)

type ctxKey int

const userKey ctxKey = iota

// Authenticator is what the auth middleware needs from auth.Authenticator.
type Authenticator interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
	Authorize(ctx context.Context, token string, required auth.Scopes) (*models.User, error)
}

// Auth builds request guards around an Authenticator.
type Auth struct {
	authn   Authenticator
	log     logrus.FieldLogger
	metrics *Metrics
}

// NewAuth returns the guard set. metrics may be nil.
func NewAuth(authn Authenticator, log logrus.FieldLogger, metrics *Metrics) *Auth {
	return &Auth{authn: authn, log: log, metrics: metrics}
}

// RequireAuth resolves the bearer token and injects the user into the request
// context.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.authn.Resolve(r.Context(), BearerToken(r))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireScopes is RequireAuth plus a role check against required.
func (a *Auth) RequireScopes(required auth.Scopes) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.authn.Authorize(r.Context(), BearerToken(r), required)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func (a *Auth) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := auth.Kind(err)
	if a.metrics != nil {
		a.metrics.AuthFailures.WithLabelValues(kind).Inc()
	}

	status := auth.Status(err)
	entry := a.log.WithFields(logrus.Fields{"kind": kind, "path": r.URL.Path})
	if status == http.StatusInternalServerError {
		entry.WithError(err).Error("authentication failed")
	} else {
		entry.Debug("authentication rejected")
	}

	if challenge := auth.Challenge(err); challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
	render.Error(w, status, auth.Detail(err))
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// A missing or differently shaped header yields "", which fails decoding.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// CurrentUser returns the user set by RequireAuth or RequireScopes, or nil.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
