package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ayush/media-reviews/backend/internal/audit"
	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
)

const (
	msgBadLogin      = "Incorrect email or password"
	msgForbiddenName = "It is forbidden to use Me as username."
	msgDuplicateUser = "User with this email already exist"
	msgLongPassword  = "Password is too long"
	msgInternalError = "internal error"
	reservedUsername = "me"
	bearerTokenType  = "bearer"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Handler holds signup, login and refresh.
type Handler struct {
	users  UserStore
	hasher PasswordHasher
	codec  *TokenCodec
	authn  *Authenticator
	audit  audit.Recorder
	log    logrus.FieldLogger
}

func NewHandler(users UserStore, hasher PasswordHasher, codec *TokenCodec, authn *Authenticator, rec audit.Recorder, log logrus.FieldLogger) *Handler {
	return &Handler{users: users, hasher: hasher, codec: codec, authn: authn, audit: rec, log: log}
}

// Signup creates a new user with the "user" role.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !render.Decode(w, r, &req) {
		return
	}
	if strings.EqualFold(req.Username, reservedUsername) {
		render.Error(w, http.StatusBadRequest, msgForbiddenName)
		return
	}

	hashed, err := h.hasher.Hash(req.Password)
	if errors.Is(err, ErrPasswordTooLong) {
		render.Error(w, http.StatusBadRequest, msgLongPassword)
		return
	}
	if err != nil {
		h.log.WithError(err).Error("hash password")
		render.Error(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	user, err := h.users.CreateUser(r.Context(), &models.User{
		Username:       req.Username,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		HashedPassword: hashed,
		Role:           RoleUser.String(),
	})
	if errors.Is(err, models.ErrConflict) {
		render.Error(w, http.StatusBadRequest, msgDuplicateUser)
		return
	}
	if err != nil {
		h.log.WithError(err).Error("create user")
		render.Error(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	h.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user signed up")
	h.audit.Record(r.Context(), user, audit.UserSignedUp, "user", user.Username)
	render.JSON(w, http.StatusCreated, user)
}

// Login checks username and password and returns a fresh token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !render.Decode(w, r, &req) {
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, models.ErrNotFound) {
		h.log.WithField("username", req.Username).Debug("login for unknown user")
		render.Error(w, http.StatusBadRequest, msgBadLogin)
		return
	}
	if err != nil {
		h.log.WithError(err).Error("load user for login")
		render.Error(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if !h.hasher.Verify(req.Password, user.HashedPassword) {
		h.log.WithField("user_id", user.ID).Debug("login with wrong password")
		render.Error(w, http.StatusBadRequest, msgBadLogin)
		return
	}

	h.issuePair(w, user)
}

// Refresh trades a valid refresh token for a new pair. The role claim is
// taken from the stored user, so role changes apply on the next refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !render.Decode(w, r, &req) {
		return
	}

	user, _, err := h.authn.ResolveRefresh(r.Context(), req.RefreshToken)
	if err != nil {
		if Status(err) == http.StatusInternalServerError {
			h.log.WithError(err).Error("resolve refresh token")
		}
		if challenge := Challenge(err); challenge != "" {
			w.Header().Set("WWW-Authenticate", challenge)
		}
		render.Error(w, Status(err), Detail(err))
		return
	}

	h.issuePair(w, user)
}

func (h *Handler) issuePair(w http.ResponseWriter, user *models.User) {
	role := RoleOf(user)
	access, _, err := h.codec.IssueAccess(user.ID, role)
	if err != nil {
		h.log.WithError(err).Error("issue access token")
		render.Error(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	refresh, _, err := h.codec.IssueRefresh(user.ID, role)
	if err != nil {
		h.log.WithError(err).Error("issue refresh token")
		render.Error(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	render.JSON(w, http.StatusOK, models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    bearerTokenType,
	})
}
