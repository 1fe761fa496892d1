package mapr

import "github.com/xinaxu/mapr/internal/region"

// Error represents a mapping error. OS syscall failures are wrapped with
// the name of the call that produced them and can be unwrapped with
// errors.Unwrap; input errors carry no wrapped error.
type Error = region.Error

// Input errors, detected before any syscall is issued.
var (
	// ErrZeroLength is returned when the requested mapping length, after
	// the page-alignment correction is folded in, is zero. Anonymous
	// mappings without a configured length fail with this error.
	ErrZeroLength = region.ErrZeroLength

	// ErrNegativeOffset is returned when a negative file offset is
	// configured on a file-backed mapping.
	ErrNegativeOffset = region.ErrNegativeOffset

	// ErrInvalidRange is returned for a flush window that does not lie
	// within the mapping.
	ErrInvalidRange = region.ErrInvalidRange

	// ErrClosed is returned when operating on a handle that has been
	// closed or consumed by a protection transition.
	ErrClosed = region.ErrClosed

	// ErrLengthOverflow is returned when a mapping length inferred from
	// the file size does not fit in int, or the configured offset lies
	// past the end of the file.
	ErrLengthOverflow = region.ErrLengthOverflow
)
