package aireply_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/config"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/service/aireply"
)

func openAIStub(t *testing.T, choices []openai.ChatCompletionChoice, seen *openai.ChatCompletionRequest) *aireply.OpenAIGenerator {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(seen))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{Choices: choices})
	}))
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.AI.APIKey = "test-key"
	cfg.AI.Model = "gpt-4o-mini"
	cfg.AI.BaseURL = srv.URL + "/v1"
	return aireply.NewOpenAIGenerator(cfg, logger.Nop())
}

func TestOpenAIGenerator(t *testing.T) {
	var seen openai.ChatCompletionRequest
	gen := openAIStub(t, []openai.ChatCompletionChoice{{
		Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  sounds fun!  "},
		FinishReason: openai.FinishReasonStop,
	}}, &seen)

	reply, err := gen.Generate(context.Background(), aireply.Request{
		Self:  aireply.Persona{Name: "Maya"},
		Other: aireply.Persona{City: "Leeds"},
		History: []aireply.Turn{
			{Role: aireply.RoleUser, Content: "hi"},
			{Role: aireply.RoleAssistant, Content: "hey"},
			{Role: aireply.RoleUser, Content: "fancy a hike?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sounds fun!", reply)

	assert.Equal(t, "gpt-4o-mini", seen.Model)
	require.Len(t, seen.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, seen.Messages[0].Role)
	assert.Contains(t, seen.Messages[0].Content, "Maya")
	assert.Equal(t, openai.ChatMessageRoleUser, seen.Messages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, seen.Messages[2].Role)
	assert.Equal(t, "fancy a hike?", seen.Messages[3].Content)
}

func TestOpenAIGeneratorNoChoices(t *testing.T) {
	var seen openai.ChatCompletionRequest
	gen := openAIStub(t, nil, &seen)

	_, err := gen.Generate(context.Background(), aireply.Request{})
	assert.ErrorIs(t, err, svcErr.ErrGenerationFailure)
}
