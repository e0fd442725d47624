package deepseek

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"whispersub/internal/services"
)

const notArrayMessage = "response must be a JSON array with the same length as input"

// codeFence matches a reply wrapped entirely in ``` or ```json fences.
var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// parseTranslations decodes the model's answer into exactly want strings.
func parseTranslations(content string, want int) ([]string, error) {
	cleaned := stripCodeFenceBlock(content)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		var probe any
		if json.Unmarshal([]byte(cleaned), &probe) == nil {
			return nil, services.Wrap(services.ErrMalformedResponse, stage, "parse translations", notArrayMessage, nil)
		}
		return nil, services.Wrap(services.ErrMalformedResponse, stage, "parse translations",
			"response is not valid JSON: "+truncateSnippet(cleaned), err)
	}
	if items == nil {
		return nil, services.Wrap(services.ErrMalformedResponse, stage, "parse translations", notArrayMessage, nil)
	}
	if len(items) != want {
		return nil, services.Wrap(services.ErrMalformedResponse, stage, "parse translations",
			fmt.Sprintf("length mismatch: expected %d items, got %d", want, len(items)), nil)
	}

	out := make([]string, len(items))
	for i, raw := range items {
		out[i] = coerceString(raw)
	}
	return out, nil
}

// coerceString returns a JSON string element as-is and any other element in
// its compact JSON text form.
func coerceString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return strings.TrimSpace(string(raw))
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// truncateSnippet keeps the first 200 characters of content for error messages.
func truncateSnippet(content string) string {
	runes := []rune(content)
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit]) + "..."
	}
	return content
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	return truncateSnippet(strings.Join(strings.Fields(trimmed), " "))
}
