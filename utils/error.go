package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorAlreadyExists  = errors.New("record already exists")
	ErrorForbidden      = errors.New("admin access is required")
)

// ValidationError carries field => failed rule pairs.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed (" + strings.Join(parts, ", ") + ")"
}

func NewValidationError(field string, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProcessValidationErrors converts validator output into a ValidationError.
// Errors that are not validator.ValidationErrors are returned unchanged.
func ProcessValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	fields := make(map[string]string, len(validationErrors))
	for _, ve := range validationErrors {
		rule := ve.Tag()
		if ve.Param() != "" {
			rule += "=" + ve.Param()
		}
		fields[ve.Field()] = rule
	}
	return &ValidationError{Fields: fields}
}
