// Package indexerr defines the error taxonomy shared by the schema, adapter, and session layers.
// Callers match kinds with errors.Is; messages carry the offending type or field.
package indexerr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFieldDirective is returned when a declaration names a field kind that does not exist.
	ErrUnknownFieldDirective = errors.New("unknown field directive")
	// ErrInvalidFieldArgument is returned for unsupported field options or illegal field names.
	ErrInvalidFieldArgument = errors.New("invalid field argument")
	// ErrNoAdapter is returned when no identity adapter is registered for a type or its ancestors.
	ErrNoAdapter = errors.New("no adapter")
	// ErrNoSchema is returned when no schema is declared anywhere in a type's ancestor chain.
	ErrNoSchema = errors.New("no schema configured")
	// ErrCardinalityMismatch is returned when a collection reaches a single-value field,
	// or a value cannot be represented with the field's multiplicity.
	ErrCardinalityMismatch = errors.New("cardinality mismatch")
	// ErrInvalidValue is returned when a value cannot be coerced to its field type.
	ErrInvalidValue = errors.New("invalid value")
	// ErrRegistryFrozen is returned for declarations made after a registry was frozen.
	ErrRegistryFrozen = errors.New("registry frozen")
)

// New returns an error of the given kind with a formatted message.
func New(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

var kinds = []error{
	ErrUnknownFieldDirective,
	ErrInvalidFieldArgument,
	ErrNoAdapter,
	ErrNoSchema,
	ErrCardinalityMismatch,
	ErrInvalidValue,
	ErrRegistryFrozen,
}

// Kind returns the sentinel err matches, or nil for errors outside the taxonomy.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
