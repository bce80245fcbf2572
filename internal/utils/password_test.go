package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
	assert.False(t, VerifyPassword("not-a-hash", "hunter22"))

	_, err = HashPassword(strings.Repeat("x", 73), bcrypt.MinCost)
	assert.Error(t, err)
}

func TestClampCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, ClampCost(0))
	assert.Equal(t, bcrypt.MinCost, ClampCost(bcrypt.MinCost))
	assert.Equal(t, 12, ClampCost(12))
	assert.Equal(t, bcrypt.MaxCost, ClampCost(99))
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("hunter22", bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, NeedsRehash(hash, bcrypt.MinCost))
	assert.True(t, NeedsRehash(hash, bcrypt.MinCost+1))
	assert.False(t, NeedsRehash("not-a-hash", bcrypt.MinCost))
}
