package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a conversation does not exist or does
	// not belong to the requesting company.
	ErrNotFound = errors.New("conversation not found")

	// ErrEndpointUnavailable is returned when the channel instance behind
	// a conversation is not in the connected state.
	ErrEndpointUnavailable = errors.New("channel instance is not connected")
)

// ProviderRejectedError means the gateway accepted the request but refused
// to send the message. Retrying with the same input will not help.
type ProviderRejectedError struct {
	StatusCode int
	Message    string
}

func (e *ProviderRejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider rejected message (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider rejected message (status %d)", e.StatusCode)
}

// ProviderUnreachableError means the gateway could not be reached at the
// network level. The caller may retry.
type ProviderUnreachableError struct {
	Err error
}

func (e *ProviderUnreachableError) Error() string {
	return fmt.Sprintf("provider unreachable: %v", e.Err)
}

func (e *ProviderUnreachableError) Unwrap() error {
	return e.Err
}
