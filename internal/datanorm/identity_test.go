package datanorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalIdentity(t *testing.T) {
	assert.Equal(t, "alice@rprocess.in", CanonicalIdentity("alice", "rprocess.in"))
	assert.Equal(t, "alice@rprocess.in", CanonicalIdentity("  alice  ", "rprocess.in"))
	// An existing domain is replaced, not doubled.
	assert.Equal(t, "alice@rprocess.in", CanonicalIdentity("alice@gmail.com", "rprocess.in"))
	assert.Equal(t, "alice@rprocess.in", CanonicalIdentity("alice@rprocess.in", "rprocess.in"))
}

func TestCanonicalIdentityInvalid(t *testing.T) {
	for _, in := range []any{"", "   ", "undefined", "UNDEFINED", "nil", "Nil", nil} {
		assert.Equal(t, "", CanonicalIdentity(in, "rprocess.in"), "%v", in)
	}
}

func TestCanonicalIdentityNoDomain(t *testing.T) {
	assert.Equal(t, "alice", CanonicalIdentity("alice@rprocess.in", ""))
	assert.Equal(t, "bob", CanonicalIdentity("bob", ""))
}

func TestBareName(t *testing.T) {
	assert.Equal(t, "alice", BareName("alice@rprocess.in"))
	assert.Equal(t, "alice", BareName("alice"))
}
