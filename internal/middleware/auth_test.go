package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/media-reviews/backend/internal/auth"
	"github.com/ayush/media-reviews/backend/internal/config"
	"github.com/ayush/media-reviews/backend/internal/models"
)

type stubUsers map[int64]*models.User

func (s stubUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

type fixture struct {
	codec   *auth.TokenCodec
	guard   *Auth
	metrics *Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := auth.NewTokenCodec(&config.Config{
		JWTSecretKey:        "access",
		JWTRefreshSecretKey: "refresh",
		JWTAlgorithm:        "HS256",
		AccessTokenTTL:      time.Hour,
		RefreshTokenTTL:     24 * time.Hour,
	})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	users := stubUsers{
		1: {ID: 1, Username: "alice", Role: "user"},
		2: {ID: 2, Username: "root", Role: "admin"},
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	return &fixture{
		codec:   codec,
		guard:   NewAuth(auth.NewAuthenticator(codec, users, log), log, metrics),
		metrics: metrics,
	}
}

func (f *fixture) bearer(t *testing.T, id int64, role auth.Role) string {
	t.Helper()
	tok, _, err := f.codec.IssueAccess(id, role)
	require.NoError(t, err)
	return "Bearer " + tok
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := CurrentUser(r.Context())
		require.NotNil(t, u)
		w.Write([]byte(u.Username))
	})
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t)
	h := f.guard.RequireAuth(echoUser(t))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", f.bearer(t, 1, auth.RoleUser))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", w.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, w.Body.String())
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Basic Ym9iOnB3MTIz")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", f.bearer(t, 77, auth.RoleUser))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, w.Header().Get("WWW-Authenticate"))
		assert.JSONEq(t, `{"detail":"Could not find user"}`, w.Body.String())
	})

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.AuthFailures.WithLabelValues("malformed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AuthFailures.WithLabelValues("unknown_subject")))
}

func TestRequireScopes(t *testing.T) {
	f := newFixture(t)
	h := f.guard.RequireScopes(auth.StaffScopes)(echoUser(t))

	req := httptest.NewRequest(http.MethodPost, "/categories", nil)
	req.Header.Set("Authorization", f.bearer(t, 1, auth.RoleUser))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Bearer scope="moderator admin"`, w.Header().Get("WWW-Authenticate"))
	assert.JSONEq(t, `{"detail":"Not enough permissions"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/categories", nil)
	req.Header.Set("Authorization", f.bearer(t, 2, auth.RoleAdmin))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "root", w.Body.String())
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"Token abc":    "",
		"Bearerabc":    "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(req), header)
	}
}

func TestCurrentUserAbsent(t *testing.T) {
	assert.Nil(t, CurrentUser(context.Background()))
}
