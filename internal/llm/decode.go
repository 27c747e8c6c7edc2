package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

// ParseLabelContent turns the model's text answer into ExtractedFields.
// It returns a MalformedResponse failure when the text is not the expected
// record after wrapper stripping, and an ExplicitServiceError when the text
// is a structured error payload. TargetSSID is never set here.
func ParseLabelContent(op, content string, logger *slog.Logger) (entity.ExtractedFields, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	stripped := StripWrapper(content)
	if stripped == "" {
		return entity.ExtractedFields{}, nil, NewMalformedError(op, errors.New("empty payload"))
	}
	raw := []byte(stripped)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return entity.ExtractedFields{}, raw, NewMalformedError(op, fmt.Errorf("decode: %w (payload snippet: %s)", err, SummarizeSnippet(stripped)))
	}
	if msg, ok := ServiceErrorMessage(raw); ok {
		return entity.ExtractedFields{}, raw, NewServiceError(op, msg)
	}

	// Validate strictly first, then try a lenient normalize.
	if err := ValidateLabelJSON(raw); err != nil {
		cleaned, dropped, sErr := NormalizeLabelJSON(raw, logger)
		if sErr != nil {
			return entity.ExtractedFields{}, raw, NewMalformedError(op, sErr)
		}
		if vErr := ValidateLabelJSON(cleaned); vErr != nil {
			return entity.ExtractedFields{}, raw, NewMalformedError(op, vErr)
		}
		logger.Debug("llm.extract.lenient_sanitize_applied", "dropped", dropped)
		raw = cleaned
	}

	var doc struct {
		SerialNumber    *string `json:"serial_number"`
		DefaultSSID     *string `json:"default_ssid"`
		DefaultPassword *string `json:"default_pass"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return entity.ExtractedFields{}, raw, NewMalformedError(op, fmt.Errorf("unmarshal fields: %w", err))
	}

	var out entity.ExtractedFields
	setIfPresent(&out, constants.FieldSerialNumber, doc.SerialNumber)
	setIfPresent(&out, constants.FieldDefaultSSID, doc.DefaultSSID)
	setIfPresent(&out, constants.FieldDefaultPassword, doc.DefaultPassword)
	return out, raw, nil
}

func setIfPresent(f *entity.ExtractedFields, name constants.FieldName, v *string) {
	if v == nil {
		return
	}
	s := strings.TrimSpace(*v)
	if s == "" || strings.EqualFold(s, "null") {
		return
	}
	f.Set(name, s)
}

// ServiceErrorMessage reports whether body is a structured error payload
// ({"error": "..."} or {"error": {"message": "..."}}) and returns its message.
func ServiceErrorMessage(body []byte) (string, bool) {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Error) == 0 || string(env.Error) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(env.Error, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var obj struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(env.Error, &obj); err == nil {
		msg := strings.TrimSpace(obj.Message)
		if msg == "" {
			msg = strings.TrimSpace(obj.Status)
		}
		if msg == "" {
			msg = "service error"
		}
		return msg, true
	}
	return "service error", true
}

// SummarizeSnippet flattens and truncates content for log/error messages.
func SummarizeSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
