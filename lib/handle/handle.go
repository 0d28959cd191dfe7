package handle

import (
	"errors"
	"os"
	"sync/atomic"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Handle is a capability that can be attached to a message.
type Handle interface {
	Close() error
}

// ErrHandleClosed is returned when a handle is used after Close.
var ErrHandleClosed = errors.New("handle already closed")

// File wraps an *os.File so it can travel with a message.
type File struct {
	file   *os.File
	closed atomic.Bool
}

// NewFile takes ownership of f.
func NewFile(f *os.File) *File {
	return &File{file: f}
}

// File returns the underlying file, or nil once closed.
func (f *File) File() *os.File {
	if f.closed.Load() {
		return nil
	}
	return f.file
}

// Close closes the underlying file. A second Close returns ErrHandleClosed.
func (f *File) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return ErrHandleClosed
	}
	if err := f.file.Close(); err != nil {
		return oops.Wrapf(err, "closing file handle %s", f.file.Name())
	}
	return nil
}

// CloseAll closes every non-nil handle and joins the errors.
func CloseAll(handles []Handle) error {
	var errs []error
	for _, h := range handles {
		if h == nil {
			continue
		}
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		log.WithFields(logger.Fields{
			"at":     "handle.CloseAll",
			"count":  len(handles),
			"failed": len(errs),
		}).Warn("failed to close some handles")
	}
	return errors.Join(errs...)
}
