package llm

// labelFieldKeys are the keys the service may return. mac_address is requested
// to help the model anchor on the label but is not kept.
var labelFieldKeys = []string{"serial_number", "default_ssid", "default_pass", "mac_address"}

// BuildLabelJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Every field is optional and may be null.
func BuildLabelJSONSchema() map[string]any {
	props := make(map[string]any, len(labelFieldKeys))
	for _, k := range labelFieldKeys {
		props[k] = map[string]any{"type": []string{"string", "null"}}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}
