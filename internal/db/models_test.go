package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeAt(t *testing.T) {
	dob := time.Date(1995, time.June, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, AgeAt(dob, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, AgeAt(dob, time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, AgeAt(dob, time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMatchPairHelpers(t *testing.T) {
	low, high := CanonicalPair(9, 4)
	assert.Equal(t, uint64(4), low)
	assert.Equal(t, uint64(9), high)

	m := Match{UserLowID: low, UserHighID: high, CreatedAt: time.Unix(100, 0)}
	other, ok := m.Other(9)
	assert.True(t, ok)
	assert.Equal(t, uint64(4), other)

	_, ok = m.Other(5)
	assert.False(t, ok)
	assert.True(t, m.Involves(4))

	assert.Equal(t, time.Unix(100, 0), m.ActiveAt())
	last := time.Unix(200, 0)
	m.LastMessageAt = &last
	assert.Equal(t, last, m.ActiveAt())
}
