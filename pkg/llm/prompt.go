package llm

import "fmt"

// DefaultSystemPrompt guides extraction when the caller supplies none.
const DefaultSystemPrompt = "You are an expert knowledge graph extraction engine. " +
	"Analyze the provided text/conversation and identify relevant entities (as nodes) " +
	"and relationships (as relations) between them."

// EnvelopeSchemaExample is the JSON shape embedded in every extraction
// prompt so the model knows exactly what to emit.
const EnvelopeSchemaExample = `{
  "nodes": [
    {
      "id_alias": "string (unique within this extraction)",
      "label": "string (e.g., Person, Organization)",
      "props": {"key": "value", "...": "..."},
      "confidence": "float (0.0-1.0, optional)"
    }
  ],
  "relations": [
    {
      "from_id_alias": "string (refers to node id_alias)",
      "to_id_alias": "string (refers to node id_alias)",
      "type_label": "string (e.g., WORKS_FOR)",
      "props": {"key": "value", "...": "..."},
      "valid_from": "datetime (ISO8601, optional)",
      "valid_to": "datetime (ISO8601, optional, null for open)",
      "confidence": "float (0.0-1.0, optional)"
    }
  ]
}`

// BuildExtractionPrompt assembles the full system prompt for an extraction:
// the caller's instructions (or the default), the envelope schema, and the
// extraction rules. DesiredSchema, when set, replaces the built-in example.
func BuildExtractionPrompt(ec ExtractionContext) string {
	base := ec.SystemPrompt
	if base == "" {
		base = DefaultSystemPrompt
	}
	schema := ec.DesiredSchema
	if schema == "" {
		schema = EnvelopeSchemaExample
	}
	return fmt.Sprintf(`%s

Return your findings strictly as a JSON object matching the following schema:
%s

Instructions:
- `+"`id_alias`"+` should be a descriptive, unique identifier for nodes within this extraction (e.g., "user_john_doe", "acme_corp_hq")
- If a date or time for `+"`valid_from`"+` or `+"`valid_to`"+` is mentioned, use ISO8601 format
- If a relation is ongoing, `+"`valid_to`"+` can be omitted or null
- Only extract explicitly mentioned information. Do not infer or hallucinate
- If unsure about a piece of information, omit it or assign a low confidence score`, base, schema)
}
