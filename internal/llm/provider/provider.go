// Package provider selects the label extraction backend from configuration.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/router-ingest/internal/common"
	"github.com/joseph-ayodele/router-ingest/internal/llm"
	"github.com/joseph-ayodele/router-ingest/internal/llm/gemini"
	"github.com/joseph-ayodele/router-ingest/internal/llm/openai"
	"github.com/joseph-ayodele/router-ingest/internal/llm/scanapi"
)

// New builds the configured FieldExtractor.
func New(cfg common.LLMConfig, logger *slog.Logger) (llm.FieldExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "gemini", "":
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "scanapi":
		if cfg.BaseURL == "" {
			return nil, common.InvalidArgumentErrorf("scanapi provider requires a base url")
		}
		return scanapi.NewClient(scanapi.Config{URL: cfg.BaseURL, Timeout: cfg.Timeout}, logger), nil
	default:
		return nil, common.InvalidArgumentErrorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewRetrying wraps the configured provider with the extraction retry policy.
func NewRetrying(cfg *common.Config, logger *slog.Logger) (*llm.RetryingExtractor, error) {
	inner, err := New(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	return llm.NewRetryingExtractor(inner, logger,
		llm.WithAttempts(cfg.Retry.Attempts),
		llm.WithDelay(cfg.Retry.Delay),
	), nil
}
