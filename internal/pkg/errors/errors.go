package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyProcessing marks a duplicate pipeline start for a document
	// whose run is still in flight.
	ErrAlreadyProcessing = errors.New("document already processing")
	// ErrTerminalStatus marks a status write against a document that already
	// reached a terminal status.
	ErrTerminalStatus = errors.New("document status is terminal")
	// ErrStatusRegression marks a status write that would move a document
	// backwards in the lifecycle order.
	ErrStatusRegression = errors.New("document status regression")
)
