package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("MATCH_LIKE_CAP", "")
	t.Setenv("AI_MAX_REPLY_DELAY", "")

	cfg := New()

	assert.Equal(t, 10, cfg.Match.LikeCap)
	assert.Equal(t, 20, cfg.Match.CandidateLimit)
	assert.Equal(t, time.Second, cfg.AI.MinReplyDelay)
	assert.Equal(t, 3*time.Second, cfg.AI.MaxReplyDelay)
	assert.Contains(t, cfg.DB.DSN, "@tcp(")
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("MATCH_LIKE_CAP", "25")
	t.Setenv("AI_MIN_REPLY_DELAY", "250ms")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_SOURCE", "yes")

	cfg := New()

	assert.Equal(t, 25, cfg.Match.LikeCap)
	assert.Equal(t, 250*time.Millisecond, cfg.AI.MinReplyDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.Log.Source)
}

func TestNew_BadNumbersFallBack(t *testing.T) {
	t.Setenv("MATCH_CANDIDATE_LIMIT", "lots")
	t.Setenv("AI_GENERATION_TIMEOUT", "soon")

	cfg := New()

	assert.Equal(t, 20, cfg.Match.CandidateLimit)
	assert.Equal(t, 20*time.Second, cfg.AI.GenerationTimeout)
}
