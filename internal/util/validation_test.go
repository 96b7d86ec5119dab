package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("8a0c7a58-9a40-4a52-9ef5-0d6f3f0d3c11"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("anon"))
	assert.False(t, IsValidUUID("8A0C7A58-9A40-4A52-9EF5-0D6F3F0D3C11"))
}

func TestPairingCode(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"ABCDE2FGHJ", true},
		{"ABCDE2FGHJKL", true},
		{" abcde2fghj ", true},
		{"ABCDE2FGH", false},
		{"ABCDE2FGHJKLM", false},
		{"ABCDE0FGHJ", false},
		{"ABCDEIFGHJ", false},
		{"ABCD-2FGHJ", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.valid, IsValidPairingCode(NormalizePairingCode(tc.input)))
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, IsValidIdentifier("anon"))
	assert.True(t, IsValidIdentifier("bridge-c1_x"))
	assert.False(t, IsValidIdentifier(""))
	assert.False(t, IsValidIdentifier("a:b"))
	assert.False(t, IsValidIdentifier("a*"))
}

func TestIsValidEnum(t *testing.T) {
	assert.True(t, IsValidEnum("hug", []string{"heart", "hug"}))
	assert.False(t, IsValidEnum("", []string{"heart", "hug"}))
}
