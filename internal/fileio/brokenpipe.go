package fileio

import (
	"errors"
	"io"
	"syscall"
)

// IsBrokenPipe reports whether err means the reader of our output went away,
// as when stdout is piped into head.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}
