package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/router-ingest/internal/entity"
	"github.com/joseph-ayodele/router-ingest/internal/llm"
)

const op = "gemini.extract"

// Config for the Gemini generateContent client.
type Config struct {
	APIKey      string // if empty, falls back to env GOOGLE_API_KEY
	BaseURL     string // default https://generativelanguage.googleapis.com/v1beta
	Model       string // default gemini-1.5-flash
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, log: logger}
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// ExtractFields implements llm.FieldExtractor with one generateContent call
// carrying the prompt and the photo as inline data.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", "gemini",
		"model", c.cfg.Model,
		"item_id", req.ItemID,
		"image_bytes", len(req.Image.Data),
	)

	body := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"text": llm.LabelPrompt},
				{"inline_data": map[string]any{
					"mime_type": llm.MimeType(req.Image),
					"data":      llm.Base64(req.Image),
				}},
			},
		}},
		"generationConfig": map[string]any{
			"temperature":      c.cfg.Temperature,
			"responseMimeType": "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.extract.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractedFields{}, raw, err
	}
	if msg, ok := llm.ServiceErrorMessage(raw); ok {
		return entity.ExtractedFields{}, raw, llm.NewServiceError(op, msg)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return entity.ExtractedFields{}, raw, llm.NewMalformedError(op, fmt.Errorf("decode gemini response: %w", err))
	}
	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		return entity.ExtractedFields{}, raw, llm.NewServiceError(op, "blocked: "+gr.PromptFeedback.BlockReason)
	}
	var text strings.Builder
	if len(gr.Candidates) > 0 {
		for _, p := range gr.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return entity.ExtractedFields{}, raw, llm.NewMalformedError(op, fmt.Errorf("no candidate text (payload snippet: %s)", llm.SummarizeSnippet(string(raw))))
	}

	fields, content, err := llm.ParseLabelContent(op, text.String(), c.log)
	if err != nil {
		c.log.Error("llm.extract.parse_failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractedFields{}, content, err
	}
	c.log.Info("llm.extract.ok", "req_id", rid, "item_id", req.ItemID, "elapsed_ms", time.Since(start).Milliseconds())
	return fields, content, nil
}
