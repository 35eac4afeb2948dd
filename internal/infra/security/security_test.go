package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("tajna123")
	require.NoError(t, err)
	assert.NotEqual(t, "tajna123", hash)

	assert.NoError(t, h.Compare(hash, "tajna123"))
	assert.ErrorIs(t, h.Compare(hash, "pogresno"), ErrPasswordMismatch)
	assert.Equal(t, bcrypt.DefaultCost, BcryptHasher{}.cost())
}

func TestRandomTokenGenerator(t *testing.T) {
	g := RandomTokenGenerator{Size: 16}
	a, err := g.NewToken()
	require.NoError(t, err)
	b, err := g.NewToken()
	require.NoError(t, err)
	assert.Len(t, a, 22)
	assert.NotEqual(t, a, b)
}
