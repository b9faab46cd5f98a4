// Package types provides nullable type implementations for handling optional values.
package types

// Nullable defines the interface for types that can represent null/nil values.
// Types implementing this interface can distinguish between a zero value and a
// null value, which matters for JSON patches where null clears a field and an
// absent field leaves it alone.
type Nullable interface {
	// IsNil returns true if the value is null/nil, false otherwise.
	IsNil() bool
}
