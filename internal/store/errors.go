package store

import domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"

// Error is a persistence failure. Sentinels compare by identity; the code
// lets the HTTP layer map an unhandled store error to a status.
type Error struct {
	code    domainerrors.Code
	message string
}

func (e *Error) Error() string { return e.message }

// ErrorCode implements errors.Coder.
func (e *Error) ErrorCode() domainerrors.Code { return e.code }

// Sentinel errors.
var (
	ErrNotFound      = &Error{code: domainerrors.CodeNotFound, message: "resource not found"}
	ErrAlreadyExists = &Error{code: domainerrors.CodeConflict, message: "resource already exists"}
	// ErrStale means a compare-and-set lost to a concurrent writer.
	ErrStale = &Error{code: domainerrors.CodeConflict, message: "record was modified concurrently"}
)
