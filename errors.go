package fstree

import (
	"errors"
	"fmt"
)

// Kind classifies the errors this package returns.
type Kind int

const (
	// KindNotFound indicates a requested object, tree, or path does not exist.
	KindNotFound Kind = iota
	// KindInvalidArgument indicates a malformed input (bad digest, malformed glob, bad URL).
	KindInvalidArgument
	// KindCorrupt indicates on-disk data failed a format or checksum check.
	KindCorrupt
	// KindUnsupported indicates an operation a remote or feature does not implement.
	KindUnsupported
	// KindIO indicates a filesystem or network failure.
	KindIO
	// KindLocked indicates a resource is held by another process.
	KindLocked
	// KindConflict indicates concurrent mutation raced with this operation.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidArgument:
		return "invalid argument"
	case KindCorrupt:
		return "corrupt"
	case KindUnsupported:
		return "unsupported"
	case KindIO:
		return "io"
	case KindLocked:
		return "locked"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by this package's operations.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an *Error against the sentinel errors below by
// Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUnsupported:
		return e.Kind == KindUnsupported
	case ErrCorrupt:
		return e.Kind == KindCorrupt
	}
	return false
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// IsKind reports whether err (or any error it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

var (
	// ErrNotFound matches, via errors.Is, any *Error of KindNotFound: an
	// object, tree, or path that cannot be located.
	ErrNotFound = errors.New("fstree: not found")
	// ErrUnsupported matches, via errors.Is, any *Error of KindUnsupported:
	// an operation a remote or glob list declines to implement.
	ErrUnsupported = errors.New("fstree: unsupported operation")
	// ErrCorrupt matches, via errors.Is, any *Error of KindCorrupt: on-disk
	// data that fails validation.
	ErrCorrupt = errors.New("fstree: corrupt data")
)

func wrapf(kind Kind, op, path string, format string, args ...any) error {
	return newError(kind, op, path, fmt.Errorf(format, args...))
}
