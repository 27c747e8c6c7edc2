package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/router-ingest/internal/common"
	"github.com/joseph-ayodele/router-ingest/internal/llm/gemini"
	"github.com/joseph-ayodele/router-ingest/internal/llm/openai"
	"github.com/joseph-ayodele/router-ingest/internal/llm/scanapi"
)

func TestNew(t *testing.T) {
	ext, err := New(common.LLMConfig{Provider: "openai", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, ext)

	ext, err = New(common.LLMConfig{Provider: "gemini", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, ext)

	ext, err = New(common.LLMConfig{Provider: "scanapi", BaseURL: "http://scan.local/extract"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &scanapi.Client{}, ext)

	_, err = New(common.LLMConfig{Provider: "scanapi"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = New(common.LLMConfig{Provider: "tesseract"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewRetrying_AppliesPolicy(t *testing.T) {
	cfg := &common.Config{
		LLM:   common.LLMConfig{Provider: "gemini", APIKey: "k"},
		Retry: common.RetryConfig{Attempts: 4, Delay: 5 * time.Millisecond},
	}
	r, err := NewRetrying(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Attempts())
}
