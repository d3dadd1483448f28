package chat

import "errors"

var (
	// ErrValidation indicates malformed caller input, such as a role outside
	// the closed enum or an empty completion message list.
	ErrValidation = errors.New("validation error")

	// ErrIntegrity indicates a reference to a chat that does not exist.
	ErrIntegrity = errors.New("integrity error")

	// ErrPersistence indicates the underlying store failed.
	ErrPersistence = errors.New("persistence error")
)
