package viz

import "errors"

// Error taxonomy shared by all subpackages. Callers match with errors.Is;
// subpackages wrap these with context via fmt.Errorf("...: %w", ...).
var (
	// ErrInvalidInput is returned for shape or length mismatches and inputs
	// with too few points for a primitive. It is always raised before any
	// buffer is registered, so pipeline state is left unchanged.
	ErrInvalidInput = errors.New("viz: invalid input")

	// ErrUnknownReference is returned when a buffer transfer names a buffer
	// that is not registered. Node-level update/remove do not use it: they
	// signal failure with a boolean instead.
	ErrUnknownReference = errors.New("viz: unknown reference")

	// ErrInvalidOperation is returned for operations that can never succeed,
	// such as removing the scene root or re-registering a buffer name with
	// an incompatible type.
	ErrInvalidOperation = errors.New("viz: invalid operation")

	// ErrNotInitialized is returned when render or display is requested
	// before the backend has been initialized.
	ErrNotInitialized = errors.New("viz: not initialized")
)
