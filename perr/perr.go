// Package perr defines the error taxonomy shared by every panseed component
// (spec §7). Callers distinguish categories with errors.Is/errors.Cause; each
// sentinel below is wrapped with github.com/pkg/errors at the point of use so
// a stack trace survives up to the caller.
package perr

import "github.com/pkg/errors"

// Sentinel category errors. Components never return these directly; they
// wrap them with errors.Wrap(ErrInvalidArgument, "k must be > 0") so the
// message and the category both survive.
var (
	// ErrInvalidArgument covers malformed configuration: k == 0, patched &&
	// context explicitly set below k, dmin > dmax at build, and similar.
	ErrInvalidArgument = errors.New("panseed: invalid argument")

	// ErrIoError covers file-missing, file-unreadable, and format-mismatch
	// conditions encountered during save/load.
	ErrIoError = errors.New("panseed: I/O error")

	// ErrIndexCorruption signals that a persisted sibling file exists but
	// fails its consistency check on load.
	ErrIndexCorruption = errors.New("panseed: index corruption")

	// ErrCapacityExceeded signals a matrix build that would exceed its
	// column count, or a starting-loci stream that exceeds its length limit.
	ErrCapacityExceeded = errors.New("panseed: capacity exceeded")

	// ErrNotImplemented signals an unsupported configuration combination,
	// e.g. a mismatch budget greater than the exact-matching core supports.
	ErrNotImplemented = errors.New("panseed: not implemented")
)

// Wrap annotates err with msg while preserving its category for errors.Is.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is the formatted form of Wrap.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Is reports whether err (or any error it wraps) is the given category.
// github.com/pkg/errors v0.8.x predates stdlib Unwrap support, so category
// membership is tested via errors.Cause rather than errors.Is.
func Is(err, category error) bool {
	return errors.Cause(err) == category
}
