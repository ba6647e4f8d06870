package llm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelRate prices one model in USD per 1000 tokens.
type ModelRate struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// RateTable maps model names to their token rates. Rates are a deployment
// configuration concern, not part of the extraction contract — an empty
// table simply produces no cost estimates.
type RateTable struct {
	// Rates by exact model name.
	Rates map[string]ModelRate `yaml:"rates"`
	// Default applies when a model has no entry. Nil = no estimate.
	Default *ModelRate `yaml:"default,omitempty"`
}

// LoadRateTable reads a YAML rate table:
//
//	rates:
//	  gpt-4o:
//	    input_per_1k: 0.0025
//	    output_per_1k: 0.01
//	default:
//	  input_per_1k: 0.003
//	  output_per_1k: 0.015
func LoadRateTable(path string) (*RateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading rate table %q: %v", ErrConfig, path, err)
	}
	var table RateTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: parsing rate table %q: %v", ErrConfig, path, err)
	}
	return &table, nil
}

// Estimate returns the cost in USD for a model invocation, or nil when the
// table has no applicable rate.
func (t *RateTable) Estimate(model string, inputTokens, outputTokens int) *float64 {
	if t == nil {
		return nil
	}
	rate, ok := t.Rates[model]
	if !ok {
		if t.Default == nil {
			return nil
		}
		rate = *t.Default
	}
	cost := float64(inputTokens)/1000.0*rate.InputPer1K +
		float64(outputTokens)/1000.0*rate.OutputPer1K
	return &cost
}

// Annotate attaches a cost estimate to extraction metadata in place when
// token counts are present and the table prices the model.
func (t *RateTable) Annotate(md *ExtractionMetadata) {
	if md == nil || (md.InputTokens == 0 && md.OutputTokens == 0) {
		return
	}
	md.CostUSD = t.Estimate(md.ModelName, md.InputTokens, md.OutputTokens)
}
