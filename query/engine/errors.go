package engine

import "errors"

var (
	// ErrIncompatibleOutput is returned when the requested output shape
	// conflicts with the returns selector.
	ErrIncompatibleOutput = errors.New("incompatible output specified")

	// ErrInvalidOutputType is returned for an unrecognized output shape.
	ErrInvalidOutputType = errors.New("invalid output type")

	// ErrUnavailableInStream is returned for operations that need the
	// buffered result set while the query is in streaming mode.
	ErrUnavailableInStream = errors.New("unavailable in stream mode")

	// ErrInvalidOptionCombination is returned when Data filters are
	// requested against a non-entity shape.
	ErrInvalidOptionCombination = errors.New("invalid option combination")

	// ErrQueryNotLoaded is returned when results are read before Run, or
	// after a mutation invalidated the previous run.
	ErrQueryNotLoaded = errors.New("query not loaded")

	// ErrAsyncIterationUnavailable is returned when stream iteration is
	// requested on a buffered query.
	ErrAsyncIterationUnavailable = errors.New("async iteration unavailable on buffered query")
)
