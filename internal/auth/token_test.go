package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/media-reviews/backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecretKey:        "access-secret",
		JWTRefreshSecretKey: "refresh-secret",
		JWTAlgorithm:        "HS256",
		AccessTokenTTL:      30 * time.Minute,
		RefreshTokenTTL:     7 * 24 * time.Hour,
	}
}

func newTestCodec(t *testing.T, now time.Time) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec(testConfig())
	require.NoError(t, err)
	c.now = func() time.Time { return now }
	return c
}

// signRaw signs arbitrary claims with the codec's secret for kind.
func signRaw(t *testing.T, c *TokenCodec, kind TokenKind, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secrets[kind])
	require.NoError(t, err)
	return s
}

func TestNewTokenCodec(t *testing.T) {
	cfg := testConfig()
	cfg.JWTAlgorithm = "RS256"
	_, err := NewTokenCodec(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.JWTRefreshSecretKey = ""
	_, err = NewTokenCodec(cfg)
	assert.Error(t, err)
}

func TestIssueDecodeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)

	token, issued, err := c.IssueAccess(42, RoleModerator)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := c.Decode(AccessToken, token)
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, RoleModerator, got.Role)
	assert.True(t, got.HasRole)
	assert.Equal(t, issued.ID, got.ID)
	assert.True(t, got.ExpiresAt.Equal(now.Add(30*time.Minute)), "expiry is absolute: issue time + ttl")
	assert.True(t, got.IssuedAt.Equal(now))
	assert.False(t, got.Expired(now), "fresh token is current")
}

func TestDecodeDoesNotCheckExpiry(t *testing.T) {
	now := time.Now()
	c := newTestCodec(t, now.Add(-2*time.Hour))

	token, _, err := c.Issue(AccessToken, 7, RoleUser, time.Minute)
	require.NoError(t, err)

	got, err := c.Decode(AccessToken, token)
	require.NoError(t, err, "decode only checks signature and shape")
	assert.True(t, got.Expired(now))
}

func TestClaimsExpiredBoundary(t *testing.T) {
	exp := time.Unix(1_700_000_000, 0)
	c := Claims{ExpiresAt: exp}

	assert.False(t, c.Expired(exp.Add(-time.Second)))
	assert.True(t, c.Expired(exp))
	assert.True(t, c.Expired(exp.Add(time.Second)))
}

func TestDecodeWrongSecret(t *testing.T) {
	c := newTestCodec(t, time.Now())

	refresh, _, err := c.IssueRefresh(1, RoleUser)
	require.NoError(t, err)
	_, err = c.Decode(AccessToken, refresh)
	assert.ErrorIs(t, err, ErrMalformedCredential)

	access, _, err := c.IssueAccess(1, RoleUser)
	require.NoError(t, err)
	_, err = c.Decode(RefreshToken, access)
	assert.ErrorIs(t, err, ErrMalformedCredential)

	other, err := NewTokenCodec(&config.Config{
		JWTSecretKey:        "someone-else",
		JWTRefreshSecretKey: "someone-else-refresh",
		JWTAlgorithm:        "HS256",
		AccessTokenTTL:      time.Minute,
		RefreshTokenTTL:     time.Minute,
	})
	require.NoError(t, err)
	forged, _, err := other.IssueAccess(1, RoleAdmin)
	require.NoError(t, err)
	_, err = c.Decode(AccessToken, forged)
	assert.ErrorIs(t, err, ErrMalformedCredential)
}

func TestDecodeRejectsBadShape(t *testing.T) {
	now := time.Now()
	c := newTestCodec(t, now)
	exp := jwt.NewNumericDate(now.Add(time.Hour))

	tests := []struct {
		name   string
		claims jwt.Claims
	}{
		{"missing id", wireClaims{Role: "user", Type: "access", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}},
		{"non numeric id", wireClaims{UserID: "bob", Role: "user", Type: "access", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}},
		{"missing exp", wireClaims{UserID: "1", Role: "user", Type: "access"}},
		{"unknown role", wireClaims{UserID: "1", Role: "root", Type: "access", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}},
		{"wrong type", wireClaims{UserID: "1", Role: "user", Type: "refresh", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(AccessToken, signRaw(t, c, AccessToken, tt.claims))
			assert.ErrorIs(t, err, ErrMalformedCredential)
		})
	}

	for _, garbage := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := c.Decode(AccessToken, garbage)
		assert.ErrorIs(t, err, ErrMalformedCredential, garbage)
	}
}

func TestDecodeRejectsOtherAlgorithms(t *testing.T) {
	c := newTestCodec(t, time.Now())
	wc := wireClaims{UserID: "1", Role: "admin", Type: "access", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, wc).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.Decode(AccessToken, unsigned)
	assert.ErrorIs(t, err, ErrMalformedCredential)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, wc).SignedString(c.secrets[AccessToken])
	require.NoError(t, err)
	_, err = c.Decode(AccessToken, hs512)
	assert.ErrorIs(t, err, ErrMalformedCredential)
}

func TestDecodeWithoutRole(t *testing.T) {
	c := newTestCodec(t, time.Now())
	token := signRaw(t, c, AccessToken, wireClaims{UserID: "9", Type: "access", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})

	got, err := c.Decode(AccessToken, token)
	require.NoError(t, err)
	assert.False(t, got.HasRole)
	assert.Equal(t, int64(9), got.UserID)
}

func TestIssueRejectsBadInput(t *testing.T) {
	c := newTestCodec(t, time.Now())

	_, _, err := c.Issue(AccessToken, 1, RoleUser, 0)
	assert.Error(t, err)
	_, _, err = c.Issue(AccessToken, 1, Role(99), time.Minute)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedCredential))
}
