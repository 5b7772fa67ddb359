// Package device defines the contract between the connection registry and a
// single native capture device. An Opener turns a device index into a Handle;
// a Handle reads frames, reports and changes properties, and is released
// exactly once by its owner.
package device

import (
	"errors"
	"image"
)

var (
	// ErrDeviceUnavailable is returned by Open when the index does not map to
	// an accessible device (missing, locked by another process, or denied).
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrCaptureFailed is returned by ReadFrame when a frame could not be read
	// from an opened device (disconnect, driver timeout, empty frame).
	ErrCaptureFailed = errors.New("capture failed")
)

// Opener opens capture devices by index. Implementations never retry; a
// failed open is reported immediately.
type Opener interface {
	Open(index int) (Handle, error)
}

// OpenerFunc adapts a plain function to the Opener interface.
type OpenerFunc func(index int) (Handle, error)

// Open calls the underlying function.
func (f OpenerFunc) Open(index int) (Handle, error) {
	return f(index)
}

// Handle is one open capture device. A Handle is not safe for concurrent use;
// callers serialize access to it.
type Handle interface {
	// ReadFrame reads exactly one frame. When flip is set the image is
	// mirrored horizontally before it is returned.
	ReadFrame(flip bool) (image.Image, error)

	// Properties returns the values the device reports for the properties in
	// ReportedProperties. Sentinel values (negative, NaN) are passed through.
	Properties() map[string]float64

	// SetProperty changes a property and reports whether the device
	// acknowledged the change. Unknown or unsupported properties yield false.
	SetProperty(name string, value float64) bool

	// Release frees the device. Releasing an already released handle is a
	// no-op and returns nil.
	Release() error
}
