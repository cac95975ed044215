package attachments

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEncoding indicates the payload was not valid base64
	ErrInvalidEncoding = errors.New("payload is not valid base64")

	// ErrNotFound indicates the owning lead does not exist in the company
	ErrNotFound = errors.New("lead not found")

	// ErrStorage indicates the content store rejected or failed the write
	ErrStorage = errors.New("storage operation failed")
)

// PayloadTooLargeError reports a payload above the ingestion ceiling
type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds the %d byte limit", e.Size, e.Limit)
}
