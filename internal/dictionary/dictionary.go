package dictionary

import "errors"

// NullCode is the sentinel returned while a name has no collector-assigned
// code yet. Code zero is never a valid assignment.
const NullCode int32 = 0

// OperationKey scopes an operation name to its owning application code.
// The same path on two applications interns independently.
type OperationKey struct {
	AppCode int32
	Name    string
}

var (
	// ErrNullAssignment rejects an attempt to intern the null sentinel.
	ErrNullAssignment = errors.New("cannot assign the null sentinel code")

	// ErrEmptyName rejects registration of an empty name.
	ErrEmptyName = errors.New("name cannot be empty")
)
