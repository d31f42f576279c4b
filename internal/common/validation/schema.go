package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins the errors into one line for logs and error details.
func (r *ValidationResult) Summary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// PollResponseSchema is the minimum shape a live pricing snapshot must have before it can be
// normalized: the four lookup collections present as arrays. Members are not checked here;
// a record with missing or null fields is resolved as far as possible by the normalizer.
const PollResponseSchema = `{
  "type": "object",
  "required": ["Itineraries", "Legs", "Places", "Carriers"],
  "properties": {
    "Status": {"type": "string"},
    "Itineraries": {"type": "array"},
    "Legs": {"type": "array"},
    "Places": {"type": "array"},
    "Carriers": {"type": "array"},
    "Agents": {"type": ["array", "null"]}
  }
}`

var pollResponseSchema = mustCompile(PollResponseSchema)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return s
}

// ValidatePollResponse checks a raw provider snapshot against PollResponseSchema.
func ValidatePollResponse(raw []byte) *ValidationResult {
	return validate(pollResponseSchema, raw)
}

// ValidateDocument checks raw against an arbitrary JSON schema string.
func ValidateDocument(schema string, raw []byte) (*ValidationResult, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return validate(s, raw), nil
}

func validate(schema *gojsonschema.Schema, raw []byte) *ValidationResult {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_JSON",
			}},
		}
	}

	out := &ValidationResult{Valid: res.Valid()}
	for _, e := range res.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool {
		return out.Errors[i].Field < out.Errors[j].Field
	})
	return out
}
