package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/media-reviews/backend/internal/models"
)

// memUsers is an in-memory UserStore with the uniqueness rules of the users table.
type memUsers struct {
	byID   map[int64]*models.User
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*models.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	for _, existing := range m.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			return nil, models.ErrConflict
		}
	}
	m.nextID++
	created := *u
	created.ID = m.nextID
	m.byID[created.ID] = &created
	return &created, nil
}

func (m *memUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

type recorded struct {
	action, resource, id string
}

type fakeRecorder struct {
	events []recorded
}

func (f *fakeRecorder) Record(_ context.Context, _ *models.User, action, resource, id string) {
	f.events = append(f.events, recorded{action, resource, id})
}

type handlerFixture struct {
	users *memUsers
	codec *TokenCodec
	audit *fakeRecorder
	h     *Handler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	codec, err := NewTokenCodec(testConfig())
	require.NoError(t, err)
	users := newMemUsers()
	rec := &fakeRecorder{}
	log := quietLogger()
	h := NewHandler(users, NewBcryptHasher(bcrypt.MinCost), codec, NewAuthenticator(codec, users, log), rec, log)
	return &handlerFixture{users: users, codec: codec, audit: rec, h: h}
}

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestSignupThenLogin(t *testing.T) {
	f := newHandlerFixture(t)

	w := post(f.h.Signup, "/api/v1/signup", `{"username":"bob","email":"b@x.com","password":"pw123"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "pw123")
	assert.NotContains(t, w.Body.String(), "hashed_password")

	var created models.User
	decodeBody(t, w, &created)
	assert.Equal(t, "bob", created.Username)
	assert.Equal(t, "user", created.Role)

	require.Len(t, f.users.byID, 1)
	stored := f.users.byID[created.ID]
	assert.NotEqual(t, "pw123", stored.HashedPassword)
	assert.True(t, strings.HasPrefix(stored.HashedPassword, "$2"))
	assert.Equal(t, []recorded{{"USER_SIGNED_UP", "user", "bob"}}, f.audit.events)

	w = post(f.h.Login, "/api/v1/login", `{"username":"bob","password":"pw123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tokens models.TokenResponse
	decodeBody(t, w, &tokens)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "bearer", tokens.TokenType)

	claims, err := f.codec.Decode(AccessToken, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, RoleUser, claims.Role)

	w = post(f.h.Login, "/api/v1/login", `{"username":"bob","password":"wrong"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Incorrect email or password"}`, w.Body.String())
}

func TestLoginUnknownUser(t *testing.T) {
	f := newHandlerFixture(t)

	w := post(f.h.Login, "/api/v1/login", `{"username":"ghost","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Incorrect email or password"}`, w.Body.String())
}

func TestLoginWithoutRoleGetsGuestClaim(t *testing.T) {
	f := newHandlerFixture(t)
	hashed, err := NewBcryptHasher(bcrypt.MinCost).Hash("pw")
	require.NoError(t, err)
	_, err = f.users.CreateUser(context.Background(), &models.User{Username: "legacy", Email: "l@x.com", HashedPassword: hashed})
	require.NoError(t, err)

	w := post(f.h.Login, "/api/v1/login", `{"username":"legacy","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var tokens models.TokenResponse
	decodeBody(t, w, &tokens)

	claims, err := f.codec.Decode(AccessToken, tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.HasRole)
	assert.Equal(t, RoleGuest, claims.Role)
}

func TestSignupRejections(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
		detail string
	}{
		{"reserved name", `{"username":"Me","email":"me@x.com","password":"pw"}`, http.StatusBadRequest, "It is forbidden to use Me as username."},
		{"bad json", `{"username":`, http.StatusBadRequest, "invalid request body"},
		{"missing password", `{"username":"carl","email":"c@x.com"}`, http.StatusUnprocessableEntity, ""},
		{"bad email", `{"username":"carl","email":"nope","password":"pw"}`, http.StatusUnprocessableEntity, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := post(f.h.Signup, "/api/v1/signup", tc.body)
			assert.Equal(t, tc.status, w.Code)
			if tc.detail != "" {
				assert.JSONEq(t, `{"detail":"`+tc.detail+`"}`, w.Body.String())
			}
		})
	}
	assert.Empty(t, f.users.byID)

	w := post(f.h.Signup, "/api/v1/signup", `{"username":"dana","email":"d@x.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = post(f.h.Signup, "/api/v1/signup", `{"username":"dana","email":"other@x.com","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"User with this email already exist"}`, w.Body.String())
}

func TestRefresh(t *testing.T) {
	f := newHandlerFixture(t)
	u, err := f.users.CreateUser(context.Background(), &models.User{Username: "mod", Email: "m@x.com", Role: "moderator"})
	require.NoError(t, err)

	refresh, _, err := f.codec.IssueRefresh(u.ID, RoleUser)
	require.NoError(t, err)

	w := post(f.h.Refresh, "/api/v1/refresh", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tokens models.TokenResponse
	decodeBody(t, w, &tokens)
	claims, err := f.codec.Decode(AccessToken, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, claims.Role, "role comes from the stored user")

	access, _, err := f.codec.IssueAccess(u.ID, RoleModerator)
	require.NoError(t, err)
	w = post(f.h.Refresh, "/api/v1/refresh", `{"refresh_token":"`+access+`"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	orphan, _, err := f.codec.IssueRefresh(999, RoleUser)
	require.NoError(t, err)
	w = post(f.h.Refresh, "/api/v1/refresh", `{"refresh_token":"`+orphan+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshExpired(t *testing.T) {
	f := newHandlerFixture(t)
	u, err := f.users.CreateUser(context.Background(), &models.User{Username: "old", Email: "o@x.com", Role: "user"})
	require.NoError(t, err)

	f.codec.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	stale, _, err := f.codec.IssueRefresh(u.ID, RoleUser)
	require.NoError(t, err)
	f.codec.now = time.Now

	w := post(f.h.Refresh, "/api/v1/refresh", `{"refresh_token":"`+stale+`"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"detail":"Token expired"}`, w.Body.String())
}

func TestSignupPasswordTooLong(t *testing.T) {
	f := newHandlerFixture(t)

	w := post(f.h.Signup, "/api/v1/signup", `{"username":"bob","email":"b@x.com","password":"`+strings.Repeat("a", 73)+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "password")

	w = post(f.h.Signup, "/api/v1/signup", `{"username":"bob","email":"b@x.com","password":"`+strings.Repeat("é", 40)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Password is too long"}`, w.Body.String())

	assert.Empty(t, f.users.byID)
	assert.Empty(t, f.audit.events)

	w = post(f.h.Signup, "/api/v1/signup", `{"username":"bob","email":"b@x.com","password":"`+strings.Repeat("a", 72)+`"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}
