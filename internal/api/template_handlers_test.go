package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteReplacesPlaceholders(t *testing.T) {
	out := substitute("Dear {{name}}, your request {{id}} is approved.",
		map[string]string{"name": "Ahmed", "id": "42"})
	assert.Equal(t, "Dear Ahmed, your request 42 is approved.", out)
}

func TestSubstituteLeavesUnknownPlaceholders(t *testing.T) {
	out := substitute("Hello {{name}}", map[string]string{"other": "x"})
	assert.Equal(t, "Hello {{name}}", out)
}

func TestSubstituteNilVariables(t *testing.T) {
	out := substitute("Hello {{name}}", nil)
	assert.Equal(t, "Hello {{name}}", out)
}
