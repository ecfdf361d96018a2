package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("pw123")
	require.NoError(t, err)
	second, err := h.Hash("pw123")
	require.NoError(t, err)

	assert.NotEqual(t, "pw123", first)
	assert.NotEqual(t, first, second, "salt must make equal plaintexts hash differently")
	assert.True(t, h.Verify("pw123", first))
	assert.True(t, h.Verify("pw123", second))
	assert.False(t, h.Verify("wrong", first))
}

func TestBcryptHasherMalformedHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	for _, stored := range []string{"", "plaintext", "$2a$10$short"} {
		assert.False(t, h.Verify("pw123", stored), stored)
	}
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).Cost)
	assert.Equal(t, 12, NewBcryptHasher(12).Cost)
}

func TestBcryptHasherRejectsLongInput(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("x", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hashed, err := h.Hash(strings.Repeat("x", MaxPasswordBytes))
	require.NoError(t, err)
	assert.True(t, h.Verify(strings.Repeat("x", MaxPasswordBytes), hashed))
}
