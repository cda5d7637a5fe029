package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *BcryptHasher {
	t.Helper()
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := newTestHasher(t)

	for _, password := range []string{"Abc123", "Ab1@#$", "Zz9!Zz9!", "Ann123"} {
		t.Run(password, func(t *testing.T) {
			digest, err := h.Hash(password)
			require.NoError(t, err)

			assert.NotEqual(t, password, digest)
			assert.True(t, h.Verify(password, digest))
			assert.False(t, h.Verify(password+"x", digest))
		})
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("Abc123")
	require.NoError(t, err)
	b, err := h.Hash("Abc123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("Abc123", a))
	assert.True(t, h.Verify("Abc123", b))
}

func TestBcryptHasher_DifferentPasswordsDoNotVerify(t *testing.T) {
	h := newTestHasher(t)

	digest, err := h.Hash("Abc123")
	require.NoError(t, err)

	assert.False(t, h.Verify("abc123", digest))
	assert.False(t, h.Verify("", digest))
}

func TestBcryptHasher_MalformedDigest(t *testing.T) {
	h := newTestHasher(t)
	assert.False(t, h.Verify("Abc123", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("Abc123", ""))
}

func TestBcryptHasher_EncodesCost(t *testing.T) {
	h := newTestHasher(t)
	digest, err := h.Hash("Abc123")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestNewBcryptHasher_RejectsOutOfRangeCost(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)

	_, err = NewBcryptHasher(1)
	assert.Error(t, err)
}

func TestBcryptHasher_TooLongPassword(t *testing.T) {
	h := newTestHasher(t)
	_, err := h.Hash(strings.Repeat("a", 73))
	assert.Error(t, err)
}
