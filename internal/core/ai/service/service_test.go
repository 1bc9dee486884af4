package service

import (
	"testing"
	"time"

	"recipe-vision/internal/core/ai/ollama"
	"recipe-vision/internal/core/ai/openrouter"
	"recipe-vision/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.LLMConfig{Provider: "ollama", Model: "gemma3:4b", Timeout: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &ollama.Client{}, p)
	assert.Equal(t, "gemma3:4b", p.GetModel())
	assert.Equal(t, time.Minute, p.GetTimeout())

	p, err = NewProvider(config.LLMConfig{Provider: "openrouter", Model: "m", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &openrouter.Client{}, p)

	_, err = NewProvider(config.LLMConfig{Provider: "openrouter", Model: "m"})
	assert.Error(t, err)

	_, err = NewProvider(config.LLMConfig{Provider: "bogus"})
	assert.Error(t, err)
}
