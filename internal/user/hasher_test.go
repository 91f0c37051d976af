package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "salt must differ per call")
	assert.True(t, strings.HasPrefix(a, "$2a$04$"))
	assert.True(t, h.Verify(a, "secret1"))
	assert.False(t, h.Verify(a, "secret2"))
	assert.False(t, h.Verify("", "secret1"))
	assert.False(t, h.Verify("not-a-bcrypt-digest", "secret1"))
}

func TestBcryptHasherDefaultCost(t *testing.T) {
	d, err := BcryptHasher{}.Hash("x")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(d))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
