package services

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// analysisResponseSchema describes the success body of POST /analyze.
// Only matchScore and recruiterSummary are required; the rest is optional detail.
const analysisResponseSchema = `{
  "type": "object",
  "required": ["jobFitAnalysis"],
  "properties": {
    "jobFitAnalysis": {
      "type": "object",
      "required": ["matchScore", "recruiterSummary"],
      "properties": {
        "matchScore": {"type": "number"},
        "recruiterSummary": {"type": "string"},
        "semanticSimilarity": {"type": "number"},
        "missingKeywords": {"type": "array", "items": {"type": "string"}},
        "resumeImprovements": {
          "type": "object",
          "properties": {
            "actionableAdvice": {"type": "string"}
          }
        }
      }
    }
  }
}`

// ResponseValidator checks analysis responses against a compiled JSON schema.
type ResponseValidator struct {
	schema *gojsonschema.Schema
}

// NewResponseValidator compiles the /analyze response schema.
func NewResponseValidator() (*ResponseValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(analysisResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("compile analysis response schema: %w", err)
	}
	return &ResponseValidator{schema: schema}, nil
}

// Validate returns nil when body matches the schema.
func (v *ResponseValidator) Validate(body []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("response failed schema validation: %s", strings.Join(msgs, "; "))
}
