package region

// Error represents a mapping error. OS failures are wrapped with the name
// of the syscall that produced them; input errors carry no wrapped error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mapr: " + e.Op + ": " + e.Err.Error()
	}
	return "mapr: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Input errors, detected before any syscall is issued.
var (
	// ErrZeroLength is returned when the requested length, after the
	// alignment correction is folded in, is zero. The OS would normally
	// reject this itself, but some virtualized environments fault instead,
	// so it is caught up front.
	ErrZeroLength = &Error{Op: "zero-length mapping"}

	// ErrNegativeOffset is returned for a negative file offset.
	ErrNegativeOffset = &Error{Op: "negative offset"}

	// ErrInvalidRange is returned for a flush window outside the mapping.
	ErrInvalidRange = &Error{Op: "invalid range"}

	// ErrClosed is returned when operating on a handle whose region has
	// been released or moved by a protection transition.
	ErrClosed = &Error{Op: "mapping closed"}

	// ErrLengthOverflow is returned when a length inferred from the file
	// size does not fit in int, or the offset lies past the end of file.
	ErrLengthOverflow = &Error{Op: "length overflow"}
)
