package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayush/media-reviews/backend/internal/models"
)

// UserFinder is the read side of the user store the auth core depends on.
type UserFinder interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Authenticator turns bearer tokens into users.
type Authenticator struct {
	codec *TokenCodec
	users UserFinder
	now   func() time.Time
	log   logrus.FieldLogger
}

func NewAuthenticator(codec *TokenCodec, users UserFinder, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{codec: codec, users: users, now: time.Now, log: log}
}

// Resolve returns the user an access token identifies. Checks run in order:
// signature and shape, expiry, then user existence.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*models.User, error) {
	user, _, err := a.resolve(ctx, token, AccessToken, 0)
	return user, err
}

// Authorize is Resolve plus a scope check: when required is non-empty the
// token's role claim must be present and belong to it.
func (a *Authenticator) Authorize(ctx context.Context, token string, required Scopes) (*models.User, error) {
	user, claims, err := a.resolve(ctx, token, AccessToken, required)
	if err != nil {
		return nil, err
	}
	if required.Empty() {
		return user, nil
	}
	if !claims.HasRole || !required.Has(claims.Role) {
		a.log.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"role":     claims.Role.String(),
			"has_role": claims.HasRole,
			"required": required.String(),
		}).Debug("insufficient scope")
		return nil, newError(ErrInsufficientScope, required, nil)
	}
	return user, nil
}

// ResolveRefresh validates a refresh token and returns its user along with the
// decoded claims.
func (a *Authenticator) ResolveRefresh(ctx context.Context, token string) (*models.User, Claims, error) {
	return a.resolve(ctx, token, RefreshToken, 0)
}

func (a *Authenticator) resolve(ctx context.Context, token string, kind TokenKind, scopes Scopes) (*models.User, Claims, error) {
	claims, err := a.codec.Decode(kind, token)
	if err != nil {
		a.log.WithError(err).WithField("kind", kind.String()).Debug("token rejected")
		return nil, Claims{}, newError(ErrMalformedCredential, scopes, causeOf(err))
	}
	if claims.Expired(a.now()) {
		return nil, Claims{}, newError(ErrExpiredCredential, scopes, nil)
	}

	user, err := a.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, models.ErrNotFound) {
		a.log.WithField("user_id", claims.UserID).Info("token subject has no user")
		return nil, Claims{}, newError(ErrUnknownSubject, scopes, nil)
	}
	if err != nil {
		return nil, Claims{}, fmt.Errorf("resolve token subject %d: %w", claims.UserID, err)
	}
	return user, claims, nil
}

func causeOf(err error) error {
	var ae *Error
	if errors.As(err, &ae) && ae.cause != nil {
		return ae.cause
	}
	return err
}
