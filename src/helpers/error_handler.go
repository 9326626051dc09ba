package helpers

import "fmt"

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type WarehouseError struct {
	Message string
	Cause   error
}

func (e *WarehouseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *WarehouseError) Unwrap() error {
	return e.Cause
}

// Distinct error types for each pipeline stage. Every one of them is fatal to
// the run; there is no retry path and no automatic cleanup of a half-built
// warehouse.
type SchemaCreationError struct{ WarehouseError }

type DimensionLoadError struct {
	WarehouseError
	Dimension string
}

type SourceReadError struct{ WarehouseError }

type ScoringInputError struct{ WarehouseError }

type AggregationError struct{ WarehouseError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// NewWarehouseError wraps a fault that belongs to no single stage taxonomy
// entry, such as a warehouse write failure.
func NewWarehouseError(msg string, cause error) *WarehouseError {
	return &WarehouseError{Message: msg, Cause: cause}
}

// -----------------------------------------------------------------------------

func NewSchemaCreationError(msg string, cause error) *SchemaCreationError {
	return &SchemaCreationError{WarehouseError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewDimensionLoadError(dimension, msg string, cause error) *DimensionLoadError {
	return &DimensionLoadError{
		WarehouseError: WarehouseError{Message: fmt.Sprintf("%s dimension: %s", dimension, msg), Cause: cause},
		Dimension:      dimension,
	}
}

// -----------------------------------------------------------------------------

func NewSourceReadError(msg string, cause error) *SourceReadError {
	return &SourceReadError{WarehouseError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewScoringInputError(msg string, cause error) *ScoringInputError {
	return &ScoringInputError{WarehouseError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewAggregationError(msg string, cause error) *AggregationError {
	return &AggregationError{WarehouseError{Message: msg, Cause: cause}}
}
