package services

import "errors"

// Pipeline error taxonomy. Callers match with errors.Is; everything else
// wrapping these carries the (user, course, channel) context in its message.
var (
	// ErrInvalidArgument marks malformed input, e.g. a percentage out of
	// range or an unknown course level.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a missing enrollment, course or user.
	ErrNotFound = errors.New("not found")

	// ErrRenderingFailed marks a fatal storage write failure while
	// generating a certificate document.
	ErrRenderingFailed = errors.New("certificate rendering failed")

	// ErrPersistenceFailed marks a fatal failure to durably record a
	// notification.
	ErrPersistenceFailed = errors.New("notification persistence failed")
)
