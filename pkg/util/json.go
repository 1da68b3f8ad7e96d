package util

import (
	"bytes"
	"encoding/json"
)

// FormatJSON renders v as indented JSON followed by a newline.
func FormatJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
