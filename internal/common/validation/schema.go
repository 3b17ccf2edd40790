package validation

import (
	"fmt"
	"net/http"
	"strings"
)

// FieldType is the expected JSON type of a body field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
)

// Field declares the contract for a single header or body field. Messages
// override the generic ones so each operation can keep its exact wording.
type Field struct {
	Name            string
	Type            FieldType
	Required        bool
	MaxLength       int
	Positive        bool
	Literal         string // exact value required, headers only
	RequiredMessage string
	TooLongMessage  string
	PositiveMessage string
}

// RequestSchema is the declared contract for one operation: header fields
// first, then body fields, in the order violations should be reported.
type RequestSchema struct {
	Headers []Field
	Body    []Field
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validate checks headers and decoded body against the schema. Violations
// come back in schema declaration order, all of them at once.
func Validate(schema RequestSchema, headers http.Header, body map[string]interface{}) *ValidationResult {
	errors := []ValidationError{}

	for _, f := range schema.Headers {
		errors = append(errors, validateHeader(f, headers)...)
	}
	for _, f := range schema.Body {
		errors = append(errors, validateBodyField(f, body)...)
	}

	return &ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateHeader(f Field, headers http.Header) []ValidationError {
	path := "headers." + f.Name
	val := headers.Get(f.Name)

	if f.Literal != "" {
		// Media types may carry parameters like "; charset=utf-8".
		mediaType := strings.TrimSpace(strings.SplitN(val, ";", 2)[0])
		if !strings.EqualFold(mediaType, f.Literal) {
			return []ValidationError{{
				Field:   path,
				Message: fmt.Sprintf("must be %s", f.Literal),
				Code:    "INVALID_LITERAL",
			}}
		}
		return nil
	}

	if f.Required && val == "" {
		return []ValidationError{{
			Field:   path,
			Message: requiredMessage(f),
			Code:    "REQUIRED_FIELD_MISSING",
		}}
	}
	return nil
}

func validateBodyField(f Field, body map[string]interface{}) []ValidationError {
	path := "body." + f.Name
	val, exists := body[f.Name]

	if !exists || val == nil {
		if f.Required {
			return []ValidationError{{
				Field:   path,
				Message: requiredMessage(f),
				Code:    "REQUIRED_FIELD_MISSING",
			}}
		}
		return nil
	}

	switch f.Type {
	case TypeString:
		strVal, ok := val.(string)
		if !ok {
			return []ValidationError{{
				Field:   path,
				Message: fmt.Sprintf("expected string, got %T", val),
				Code:    "INVALID_TYPE",
			}}
		}
		errors := []ValidationError{}
		if f.Required && strVal == "" {
			errors = append(errors, ValidationError{
				Field:   path,
				Message: requiredMessage(f),
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
		if f.MaxLength > 0 && len(strVal) > f.MaxLength {
			errors = append(errors, ValidationError{
				Field:   path,
				Message: tooLongMessage(f),
				Code:    "MAX_LENGTH_VIOLATION",
			})
		}
		return errors

	case TypeNumber:
		numVal, ok := val.(float64)
		if !ok {
			return []ValidationError{{
				Field:   path,
				Message: fmt.Sprintf("expected number, got %T", val),
				Code:    "INVALID_TYPE",
			}}
		}
		if f.Positive && numVal <= 0 {
			return []ValidationError{{
				Field:   path,
				Message: positiveMessage(f),
				Code:    "MINIMUM_VIOLATION",
			}}
		}
	}

	return nil
}

func requiredMessage(f Field) string {
	if f.RequiredMessage != "" {
		return f.RequiredMessage
	}
	return "required field missing"
}

func tooLongMessage(f Field) string {
	if f.TooLongMessage != "" {
		return f.TooLongMessage
	}
	return fmt.Sprintf("value must be at most %d characters", f.MaxLength)
}

func positiveMessage(f Field) string {
	if f.PositiveMessage != "" {
		return f.PositiveMessage
	}
	return "value must be positive"
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
