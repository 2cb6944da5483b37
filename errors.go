package hived

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/dkvlabs/hived/internal/buddy"
)

const (
	errCodeOutOfArena errCode = iota
	errCodeInvalidArgument
	errCodeIOFailure
	errCodeClosed
)

type errCode int

var errs = [...]error{
	errCodeOutOfArena:      errors.New("hived: arena has no block large enough for this allocation"),
	errCodeInvalidArgument: errors.New("hived: invalid argument"),
	errCodeIOFailure:       errors.New("hived: i/o failure"),
	errCodeClosed:          errors.New("hived: database is closed"),
}

// Sentinel errors returned by this package's operations. Check against
// these with errors.Is, not by comparing OpError values directly.
var (
	// ErrOutOfArena is returned when the backing arena has no block large
	// enough to satisfy an allocation. The original C allocator treats
	// this as an unrecoverable assertion failure; this module surfaces it
	// as an ordinary error so a caller can recover or retry against a
	// larger arena.
	ErrOutOfArena = errs[errCodeOutOfArena]

	// ErrInvalidArgument is returned for malformed input: an over-length
	// name, a leaf Value of the wrong or zero type, or an operation aimed
	// at the wrong kind of node (e.g. deleting a non-empty directory).
	ErrInvalidArgument = errs[errCodeInvalidArgument]

	// ErrIOFailure reports a failure from the underlying file or mmap
	// syscalls. It is reported through an *OpError, whose Unwrap returns
	// it; use errors.As to recover the *OpError.
	ErrIOFailure = errs[errCodeIOFailure]

	// ErrClosed is returned by a Database's error-returning operations,
	// and by Iterator.Value, after Close or Destroy. Root, Iterate and the
	// other Iterator methods do not check for a closed Database, and a
	// second Close returns nil.
	ErrClosed = errs[errCodeClosed]
)

// OpError is the error type returned when a filesystem or mmap operation
// underlying a Database fails. It records which operation failed and
// wraps the underlying cause with a stack trace via github.com/pkg/errors,
// the way internal/mmapio already wraps syscall failures.
type OpError struct {
	Op   string
	Path string
	Err  error
}

// Error implements error.
func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("hived: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("hived: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping via errors.Unwrap. It resolves to
// ErrIOFailure, so callers can test with errors.Is(err, hived.ErrIOFailure)
// without caring about the specific operation or path.
func (e *OpError) Unwrap() error {
	return ErrIOFailure
}

func opErr(op, path string, cause error) error {
	return &OpError{Op: op, Path: path, Err: errors.WithStack(cause)}
}

// allocErr translates internal/buddy's own ErrOutOfArena sentinel into
// this package's, so errors.Is(err, ErrOutOfArena) succeeds for callers
// regardless of which layer actually ran out of room. Every call site
// that propagates an error from (*buddy.Allocator).Allocate routes it
// through this first.
func allocErr(err error) error {
	if errors.Is(err, buddy.ErrOutOfArena) {
		return ErrOutOfArena
	}
	return err
}
