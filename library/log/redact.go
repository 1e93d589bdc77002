package log

import (
	"encoding/json"
	"strings"
)

// RedactedValue replaces secrets in logged payloads
const RedactedValue = "[REDACTED]"

// sensitiveKeys are matched case-insensitively against json object keys
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"accesstoken":   {},
	"token":         {},
	"authorization": {},
	"secret":        {},
	"secret_key":    {},
}

// RedactJSON masks credential fields of a json payload before it is logged.
// Payloads that are not json are returned as is.
func RedactJSON(raw string) string {
	if raw == "" {
		return raw
	}

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return raw
	}

	out, err := json.Marshal(redactValue(payload))
	if err != nil {
		return raw
	}
	return string(out)
}

// redactValue recursively redacts nested payloads.
func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		output := make(map[string]any, len(v))
		for key, item := range v {
			if _, ok := sensitiveKeys[strings.ToLower(key)]; ok {
				output[key] = RedactedValue
				continue
			}
			output[key] = redactValue(item)
		}
		return output
	case []any:
		result := make([]any, 0, len(v))
		for _, item := range v {
			result = append(result, redactValue(item))
		}
		return result
	default:
		return value
	}
}
