package record

import "errors"

var (
	// ErrFieldNotFound is returned when a logical field name is not
	// declared in the registry.
	ErrFieldNotFound = errors.New("field not found")

	// ErrRecordTypeRequired is returned when a record is constructed
	// without a descriptor.
	ErrRecordTypeRequired = errors.New("record type descriptor required")

	// ErrMissingRequiredArg is returned when a required argument is absent.
	ErrMissingRequiredArg = errors.New("missing required argument")

	// ErrNotPersisted is returned when an update or delete is attempted
	// on a record that was never loaded or saved.
	ErrNotPersisted = errors.New("record is not persisted")
)
