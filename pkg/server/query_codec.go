package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ProdFact/telamentis/pkg/graph"
)

// queryEnvelope is the wire form of the closed query algebra. The "type"
// discriminant selects the variant; as_of nests its base query.
type queryEnvelope struct {
	Type string `json:"type"`

	// find_nodes
	Labels     []string       `json:"labels,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`

	// find_relationships
	FromID  string     `json:"from_node_id,omitempty"`
	ToID    string     `json:"to_node_id,omitempty"`
	Types   []string   `json:"relationship_types,omitempty"`
	ValidAt *time.Time `json:"valid_at,omitempty"`

	// shared
	Limit int `json:"limit,omitempty"`

	// as_of
	Base     json.RawMessage `json:"base_query,omitempty"`
	AsOfTime *time.Time      `json:"as_of_time,omitempty"`

	// raw
	Query  string         `json:"query,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// DecodeQuery turns a JSON query envelope into a graph.Query value.
//
// Timestamps arrive as RFC 3339 strings with offsets and are normalized to
// UTC here, so the core only ever sees UTC instants.
func DecodeQuery(data []byte) (graph.Query, error) {
	var env queryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding query envelope: %w", err)
	}

	switch env.Type {
	case "find_nodes":
		return graph.FindNodes{
			Labels:     env.Labels,
			Properties: env.Properties,
			Limit:      env.Limit,
		}, nil

	case "find_relationships":
		q := graph.FindRelationships{
			Types: env.Types,
			Limit: env.Limit,
		}
		if env.FromID != "" {
			id, err := uuid.Parse(env.FromID)
			if err != nil {
				return nil, fmt.Errorf("invalid from_node_id: %w", err)
			}
			q.FromID = &id
		}
		if env.ToID != "" {
			id, err := uuid.Parse(env.ToID)
			if err != nil {
				return nil, fmt.Errorf("invalid to_node_id: %w", err)
			}
			q.ToID = &id
		}
		if env.ValidAt != nil {
			at := env.ValidAt.UTC()
			q.ValidAt = &at
		}
		return q, nil

	case "as_of":
		if env.AsOfTime == nil {
			return nil, fmt.Errorf("as_of query requires as_of_time")
		}
		if len(env.Base) == 0 {
			return nil, fmt.Errorf("as_of query requires base_query")
		}
		base, err := DecodeQuery(env.Base)
		if err != nil {
			return nil, fmt.Errorf("decoding base_query: %w", err)
		}
		return graph.AsOf{Base: base, Timestamp: env.AsOfTime.UTC()}, nil

	case "raw":
		return graph.Raw{Query: env.Query, Params: env.Params}, nil

	default:
		return nil, fmt.Errorf("unknown query type %q", env.Type)
	}
}
