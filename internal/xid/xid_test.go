package xid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDIsUniqueAndValid(t *testing.T) {
	a, b := RequestID(), RequestID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "req-"))
	assert.True(t, Valid(a))
}

func TestValidRejectsUnsafeIDs(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("abc def"))
	assert.False(t, Valid("line\nbreak"))
	assert.False(t, Valid(strings.Repeat("a", 129)))
	assert.True(t, Valid("upstream-01:abc_2.x"))
}
