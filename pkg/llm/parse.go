package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseEnvelope decodes a model's raw text into a validated envelope.
//
// Models habitually wrap JSON in markdown code fences despite instructions,
// so fences are stripped before decoding. The decoded envelope then passes
// through ValidateEnvelope — every connector shares this single path, so no
// connector can hand the core an unvalidated envelope.
func ParseEnvelope(content string) (*ExtractionEnvelope, error) {
	cleaned := stripCodeFences(content)

	var envelope ExtractionEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding envelope JSON: %v", ErrSchemaValidation, err)
	}
	if err := ValidateEnvelope(&envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
