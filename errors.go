package panseed

import "github.com/grailbio/panseed/perr"

func wrapInvalid(msg string) error { return perr.Wrap(perr.ErrInvalidArgument, "panseed: "+msg) }

func wrapInvalidf(format string, args ...interface{}) error {
	return perr.Wrapf(perr.ErrInvalidArgument, "panseed: "+format, args...)
}
