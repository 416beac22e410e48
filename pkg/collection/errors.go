package collection

import "errors"

var (
	// ErrNotArmed indicates that Run was called before the orchestrator was armed.
	ErrNotArmed = errors.New("collection is not armed")

	// ErrAlreadyRunning indicates that a collection run is already in progress.
	ErrAlreadyRunning = errors.New("collection is already running")

	// ErrNoDataSource indicates that the orchestrator was built without a data source or gateway.
	ErrNoDataSource = errors.New("missing data source or mutation gateway")

	// ErrRunPanicked indicates that a run was aborted by an unexpected panic.
	ErrRunPanicked = errors.New("collection run panicked")

	// ErrInvalidConfig indicates that the collection configuration is invalid.
	ErrInvalidConfig = errors.New("invalid collection configuration")
)
