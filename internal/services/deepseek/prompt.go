package deepseek

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt is sent with every translation batch.
const SystemPrompt = "You are a professional subtitle translator. Return only strict JSON."

const userPromptTemplate = "Translate each item to the target language. " +
	"Return a JSON array of strings with the same length and order as the input.\n\n" +
	"Target language: %s\n\n" +
	"Input JSON:\n%s"

// BuildUserPrompt embeds the target language and the JSON-encoded texts.
func BuildUserPrompt(texts []string, targetLanguage string) (string, error) {
	if texts == nil {
		texts = []string{}
	}
	encoded, err := marshalNoEscape(texts)
	if err != nil {
		return "", fmt.Errorf("encode texts: %w", err)
	}
	return fmt.Sprintf(userPromptTemplate, targetLanguage, encoded), nil
}

// marshalNoEscape keeps <, > and & literal so the model sees the subtitle
// text as written.
func marshalNoEscape(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
