package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ayush/media-reviews/backend/internal/config"
)

// TokenKind selects the secret and lifetime a token is issued with.
type TokenKind uint8

const (
	AccessToken TokenKind = iota
	RefreshToken
)

func (k TokenKind) String() string {
	if k == RefreshToken {
		return "refresh"
	}
	return "access"
}

// Claims is the decoded payload of a token.
type Claims struct {
	UserID    int64
	Role      Role
	HasRole   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Expired reports whether the token is no longer current at now.
func (c Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// wireClaims is the JSON body of the JWT.
type wireClaims struct {
	UserID string `json:"id"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenCodec issues and decodes signed bearer tokens. It is immutable after
// construction and safe for concurrent use.
type TokenCodec struct {
	method  jwt.SigningMethod
	secrets [2][]byte
	ttls    [2]time.Duration
	now     func() time.Time
}

// NewTokenCodec builds a codec from the process configuration.
func NewTokenCodec(cfg *config.Config) (*TokenCodec, error) {
	if cfg.JWTSecretKey == "" || cfg.JWTRefreshSecretKey == "" {
		return nil, errors.New("token codec: both signing secrets are required")
	}
	method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
	if method == nil || method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("token codec: unsupported algorithm %q", cfg.JWTAlgorithm)
	}
	return &TokenCodec{
		method:  method,
		secrets: [2][]byte{[]byte(cfg.JWTSecretKey), []byte(cfg.JWTRefreshSecretKey)},
		ttls:    [2]time.Duration{cfg.AccessTokenTTL, cfg.RefreshTokenTTL},
		now:     time.Now,
	}, nil
}

// TTL is the configured lifetime for kind.
func (c *TokenCodec) TTL(kind TokenKind) time.Duration {
	return c.ttls[kind]
}

// Issue signs a token for userID with the given role. The expiry is stored as
// the absolute time now+ttl.
func (c *TokenCodec) Issue(kind TokenKind, userID int64, role Role, ttl time.Duration) (string, Claims, error) {
	if ttl <= 0 {
		return "", Claims{}, fmt.Errorf("issue %s token: ttl must be positive", kind)
	}
	if !role.Valid() {
		return "", Claims{}, fmt.Errorf("issue %s token: invalid role", kind)
	}

	now := c.now()
	wc := wireClaims{
		UserID: strconv.FormatInt(userID, 10),
		Role:   role.String(),
		Type:   kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, wc).SignedString(c.secrets[kind])
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, Claims{
		UserID:    userID,
		Role:      role,
		HasRole:   true,
		IssuedAt:  wc.IssuedAt.Time,
		ExpiresAt: wc.ExpiresAt.Time,
		ID:        wc.ID,
	}, nil
}

// IssueAccess issues an access token with the configured lifetime.
func (c *TokenCodec) IssueAccess(userID int64, role Role) (string, Claims, error) {
	return c.Issue(AccessToken, userID, role, c.ttls[AccessToken])
}

// IssueRefresh issues a refresh token with the configured lifetime.
func (c *TokenCodec) IssueRefresh(userID int64, role Role) (string, Claims, error) {
	return c.Issue(RefreshToken, userID, role, c.ttls[RefreshToken])
}

// Decode verifies the signature with kind's secret and checks the payload
// shape. It does not compare the expiry with the clock; callers do that.
func (c *TokenCodec) Decode(kind TokenKind, token string) (Claims, error) {
	var wc wireClaims
	_, err := jwt.ParseWithClaims(token, &wc, func(*jwt.Token) (any, error) {
		return c.secrets[kind], nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, newError(ErrMalformedCredential, 0, err)
	}
	return wc.toClaims(kind)
}

func (wc *wireClaims) toClaims(kind TokenKind) (Claims, error) {
	malformed := func(format string, args ...any) (Claims, error) {
		return Claims{}, newError(ErrMalformedCredential, 0, fmt.Errorf(format, args...))
	}

	if wc.Type != kind.String() {
		return malformed("token type %q, want %q", wc.Type, kind)
	}
	id, err := strconv.ParseInt(wc.UserID, 10, 64)
	if err != nil || id <= 0 {
		return malformed("bad subject id %q", wc.UserID)
	}
	if wc.ExpiresAt == nil {
		return malformed("missing exp")
	}

	claims := Claims{
		UserID:    id,
		ExpiresAt: wc.ExpiresAt.Time,
		ID:        wc.ID,
	}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time
	}
	if wc.Role != "" {
		role, err := ParseRole(wc.Role)
		if err != nil {
			return malformed("%v", err)
		}
		claims.Role = role
		claims.HasRole = true
	}
	return claims, nil
}
