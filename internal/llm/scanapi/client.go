// Package scanapi talks to a label-scan HTTP endpoint that accepts
// {"image": "<data URL>"} and answers with the label fields as JSON,
// or {"error": "..."} on failure.
package scanapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/router-ingest/internal/entity"
	"github.com/joseph-ayodele/router-ingest/internal/llm"
)

const op = "scanapi.extract"

type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFields, []byte, error) {
	body := map[string]string{"image": llm.DataURL(req.Image)}
	raw, _, err := llm.SendJSON(ctx, c.httpClient, c.cfg.URL, body, nil, c.log)
	if err != nil {
		return entity.ExtractedFields{}, raw, err
	}
	return llm.ParseLabelContent(op, string(raw), c.log)
}
