package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidator validates API request payloads against JSON schemas.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

const recommendationRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"patient_id": {"type": "integer", "minimum": 1},
		"preferred_specialty_id": {"type": "integer", "minimum": 1},
		"min_rating": {"type": "number", "minimum": 0, "maximum": 5},
		"min_experience_years": {"type": "integer", "minimum": 0},
		"max_experience_years": {"type": "integer", "minimum": 0},
		"top_count": {"type": "integer", "minimum": 1, "maximum": 20},
		"only_available": {"type": "boolean"}
	},
	"required": ["patient_id"],
	"additionalProperties": false
}`

// NewSchemaValidator compiles the embedded request schemas. Compilation
// failure is a programming error surfaced at startup.
func NewSchemaValidator() (*SchemaValidator, error) {
	sv := &SchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema),
	}

	sources := map[string]string{
		"recommendation-request": recommendationRequestSchema,
	}

	for name, source := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		sv.schemas[name] = schema
	}

	return sv, nil
}

// ValidateRecommendationRequest validates a filtered-recommendation request
// body against its JSON schema.
func (sv *SchemaValidator) ValidateRecommendationRequest(data interface{}) *ValidationResult {
	return sv.validate("recommendation-request", data)
}

func (sv *SchemaValidator) validate(schemaName string, data interface{}) *ValidationResult {
	schema, exists := sv.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "schema",
				Message: fmt.Sprintf("Schema '%s' not found", schemaName),
				Code:    "SCHEMA_NOT_FOUND",
			}},
		}
	}

	var documentLoader gojsonschema.JSONLoader
	switch v := data.(type) {
	case string:
		documentLoader = gojsonschema.NewStringLoader(v)
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(v)
	default:
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return &ValidationResult{
				Valid: false,
				Errors: []ValidationError{{
					Field:   "document",
					Message: "Failed to serialize document for validation",
					Code:    "SERIALIZATION_ERROR",
				}},
			}
		}
		documentLoader = gojsonschema.NewBytesLoader(jsonBytes)
	}

	result, err := schema.Validate(documentLoader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "document",
				Message: err.Error(),
				Code:    "VALIDATION_ERROR",
			}},
		}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errors := make([]ValidationError, 0, len(result.Errors()))
	for _, resultError := range result.Errors() {
		errors = append(errors, ValidationError{
			Field:   resultError.Field(),
			Message: resultError.Description(),
			Code:    "SCHEMA_VIOLATION",
		})
	}

	return &ValidationResult{Valid: false, Errors: errors}
}
