package aireply_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/muzz-match/internal/service/aireply"
)

func TestSystemPrompt(t *testing.T) {
	self := aireply.Persona{Name: "Maya", Gender: "female", Age: 27, Bio: "Painter", Interests: []string{"art", "baking"}}
	other := aireply.Persona{Gender: "male", Age: 30, City: "London"}

	p := aireply.SystemPrompt(self, other)

	assert.Contains(t, p, "You are Maya")
	assert.Contains(t, p, "- interests: art, baking")
	assert.Contains(t, p, "- lives in: London")
	assert.Contains(t, p, "- age: 30")
	assert.NotContains(t, p, "- name: \n")
}
