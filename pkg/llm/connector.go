// Package llm defines the extraction contract between TelaMentis and Large
// Language Model connectors.
//
// A connector is given an ExtractionContext — role-tagged messages, an
// optional system prompt, token and temperature bounds — and must return an
// ExtractionEnvelope: node candidates and relation candidates addressed by
// envelope-local aliases. The core is a passive validator and pass-through:
// it checks the envelope's structure (ValidateEnvelope), optionally attaches
// a cost estimate, and never infers, rewrites, or enriches content.
//
// Envelope-local aliases are deliberately NOT system ids. A downstream
// ingestion step resolves them by upserting each node with its alias as the
// tenant-level idempotency key, then using the returned ids to create edges
// (see pkg/service.IngestEnvelope).
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// Message is one role-tagged entry in the conversation handed to the model.
type Message struct {
	// Role is "user", "assistant" or "system".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

// ExtractionContext is everything a connector needs to run one extraction.
type ExtractionContext struct {
	// Messages is the ordered conversation or text to extract from.
	Messages []Message `json:"messages"`
	// SystemPrompt overrides the default extraction instructions.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// DesiredSchema is an optional JSON schema shown to the model in place of
	// the default envelope example. Output is not validated against it.
	DesiredSchema string `json:"desired_schema,omitempty"`
	// MaxTokens caps generation. 0 = connector default.
	MaxTokens int `json:"max_tokens,omitempty"`
	// Temperature in [0.0, 1.0]. Nil = connector default.
	Temperature *float64 `json:"temperature,omitempty"`
}

// ExtractionNode is a node candidate. IDAlias is the envelope-local handle —
// unique within the envelope, resolved to a system id only at ingestion.
type ExtractionNode struct {
	IDAlias    string         `json:"id_alias"`
	Label      string         `json:"label"`
	Props      map[string]any `json:"props"`
	Confidence *float64       `json:"confidence,omitempty"`
}

// ExtractionRelation is a relation candidate between two envelope-local
// aliases, optionally bounded in valid time.
type ExtractionRelation struct {
	FromIDAlias string         `json:"from_id_alias"`
	ToIDAlias   string         `json:"to_id_alias"`
	TypeLabel   string         `json:"type_label"`
	Props       map[string]any `json:"props"`
	ValidFrom   *time.Time     `json:"valid_from,omitempty"`
	ValidTo     *time.Time     `json:"valid_to,omitempty"`
	Confidence  *float64       `json:"confidence,omitempty"`
}

// ExtractionMetadata captures how an extraction was produced.
type ExtractionMetadata struct {
	Provider     string   `json:"provider"`
	ModelName    string   `json:"model_name"`
	LatencyMS    int64    `json:"latency_ms,omitempty"`
	InputTokens  int      `json:"input_tokens,omitempty"`
	OutputTokens int      `json:"output_tokens,omitempty"`
	CostUSD      *float64 `json:"cost_usd,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// ExtractionEnvelope is the connector's structured result.
type ExtractionEnvelope struct {
	Nodes     []ExtractionNode     `json:"nodes"`
	Relations []ExtractionRelation `json:"relations"`
	Metadata  *ExtractionMetadata  `json:"metadata,omitempty"`
}

// CompletionRequest asks a connector for plain text generation.
type CompletionRequest struct {
	Prompt      string         `json:"prompt"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

// CompletionResponse is a connector's plain text result.
type CompletionResponse struct {
	Text     string              `json:"text"`
	Metadata *ExtractionMetadata `json:"metadata,omitempty"`
}

// Connector is the capability interface every LLM backend satisfies.
// Implementations must be safe for concurrent use.
type Connector interface {
	// Extract turns unstructured text into an envelope of node and relation
	// candidates. The returned envelope has already passed structural
	// validation.
	Extract(ctx context.Context, tenant graph.TenantID, ec ExtractionContext) (*ExtractionEnvelope, error)

	// Complete generates a plain text completion. Extract-only connectors
	// may return ErrInternal("complete not implemented").
	Complete(ctx context.Context, tenant graph.TenantID, req CompletionRequest) (*CompletionResponse, error)
}

// ValidateEnvelope performs the structural validation the core runs before
// any downstream use:
//   - no two nodes share an id_alias
//   - every relation endpoint alias resolves to a node in the same envelope
//
// A violation returns an error wrapping ErrSchemaValidation.
func ValidateEnvelope(envelope *ExtractionEnvelope) error {
	seen := make(map[string]struct{}, len(envelope.Nodes))
	for _, node := range envelope.Nodes {
		if _, dup := seen[node.IDAlias]; dup {
			return fmt.Errorf("%w: duplicate node id_alias %q", ErrSchemaValidation, node.IDAlias)
		}
		seen[node.IDAlias] = struct{}{}
	}
	for _, rel := range envelope.Relations {
		if _, ok := seen[rel.FromIDAlias]; !ok {
			return fmt.Errorf("%w: relation references unknown from_id_alias %q", ErrSchemaValidation, rel.FromIDAlias)
		}
		if _, ok := seen[rel.ToIDAlias]; !ok {
			return fmt.Errorf("%w: relation references unknown to_id_alias %q", ErrSchemaValidation, rel.ToIDAlias)
		}
	}
	return nil
}
