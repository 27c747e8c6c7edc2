package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/router-ingest/internal/entity"
	"github.com/joseph-ayodele/router-ingest/internal/llm"
)

const op = "openai.extract"

// ExtractFields implements llm.FieldExtractor using vision chat/completions:
// the label photo is attached as a data URL next to the fixed prompt.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"item_id", req.ItemID,
		"image_bytes", len(req.Image.Data),
		"mime_type", llm.MimeType(req.Image),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.LabelPrompt},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": "Extract the label fields from this photo."},
				{"type": "image_url", "image_url": map[string]any{"url": llm.DataURL(req.Image)}},
			}},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, httpErr := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if httpErr != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFields{}, raw, httpErr
	}

	if msg, ok := llm.ServiceErrorMessage(raw); ok {
		c.log.Error("llm.extract.service_error", "req_id", rid, "message", msg)
		return entity.ExtractedFields{}, raw, llm.NewServiceError(op, msg)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFields{}, raw, llm.NewMalformedError(op, fmt.Errorf("decode openai response: %w", err))
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid, "raw", llm.SummarizeSnippet(string(raw)),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFields{}, raw, llm.NewMalformedError(op, fmt.Errorf("no choices in openai response"))
	}
	msg := cc.Choices[0].Message
	if strings.TrimSpace(msg.Content) == "" && strings.TrimSpace(msg.Refusal) != "" {
		return entity.ExtractedFields{}, raw, llm.NewServiceError(op, "refusal: "+strings.TrimSpace(msg.Refusal))
	}

	fields, content, err := llm.ParseLabelContent(op, msg.Content, c.log)
	if err != nil {
		c.log.Error("llm.extract.parse_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFields{}, content, err
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"item_id", req.ItemID,
		"has_serial", fields.SerialNumber != nil,
		"has_ssid", fields.DefaultSSID != nil,
		"has_pass", fields.DefaultPassword != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, content, nil
}
