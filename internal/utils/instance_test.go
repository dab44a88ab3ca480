package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceID_IsStable(t *testing.T) {
	id := InstanceID()
	assert.True(t, strings.HasPrefix(id, "node-"))
	assert.Len(t, id, len("node-")+8)
	assert.Equal(t, id, InstanceID())
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, fingerprint("a"), fingerprint("a"))
	assert.NotEqual(t, fingerprint("a"), fingerprint("b"))
}
