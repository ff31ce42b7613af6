// Package errs carries the four error kinds this module's external
// interface classifies failures into: NotFound, PermissionDenied,
// NotSupported, Failed. Wrapping follows the fmt.Errorf("%w", ...) idiom,
// generalized into a typed sentinel so callers can branch with errors.Is
// instead of string matching.
package errs

import "fmt"

// Kind classifies a failure by category.
type Kind int

const (
	// Failed is the generic kernel-reported failure; the wrapped error
	// carries the errno text.
	Failed Kind = iota
	NotFound
	PermissionDenied
	NotSupported
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case PermissionDenied:
		return "permission denied"
	case NotSupported:
		return "not supported"
	default:
		return "failed"
	}
}

// Error wraps an underlying error with the operation name and error kind.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op, classifying it as kind and wrapping err
// (which may be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is lets errors.Is(err, errs.ErrNotFound) work by comparing Kind, not identity.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinel instances usable with errors.Is(err, errs.ErrNotFound).
var (
	ErrNotFound         = &Error{Kind: NotFound}
	ErrPermissionDenied = &Error{Kind: PermissionDenied}
	ErrNotSupported     = &Error{Kind: NotSupported}
	ErrFailed           = &Error{Kind: Failed}
)
