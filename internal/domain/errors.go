package domain

import "strings"

// SchemaError reports every structural problem found in a dataset.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	return strings.Join(e.Issues, "\n")
}

// ValidationError aggregates the per-variable failures of an audit.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "Failed validation checks:\n" + strings.Join(e.Issues, "\n")
}
