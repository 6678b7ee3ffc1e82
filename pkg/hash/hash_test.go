package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	Cost = bcrypt.MinCost

	h, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", h)
	assert.True(t, CheckPassword(h, "s3cret"))
	assert.False(t, CheckPassword(h, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))
}

func TestHashPassword_TooLong(t *testing.T) {
	Cost = bcrypt.MinCost

	_, err := HashPassword(strings.Repeat("a", MaxPasswordBytes))
	require.NoError(t, err)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// the limit is in bytes: 25 Devanagari letters are 75 bytes
	_, err = HashPassword(strings.Repeat("क", 25))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestCompareDummy_UsesConfiguredCost(t *testing.T) {
	Cost = bcrypt.MinCost

	CompareDummy("anything")
	cost, err := bcrypt.Cost(dummyHash)
	require.NoError(t, err)
	assert.Equal(t, Cost, cost)
}

func TestSha256Hex(t *testing.T) {
	assert.Len(t, Sha256Hex("token"), 64)
	assert.Equal(t, Sha256Hex("token"), Sha256Hex("token"))
	assert.NotEqual(t, Sha256Hex("token"), Sha256Hex("token2"))
}
