package audioio

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceClosed is returned when starting a source after Close.
	ErrSourceClosed = errors.New("audioio: source closed")

	// ErrBackendUnavailable is returned by NewSource when the requested
	// backend has nothing to capture from.
	ErrBackendUnavailable = errors.New("audioio: backend unavailable")
)

// DeviceError reports a media-device failure such as a denied permission
// or a lost device. Device errors are surfaced to the caller and never
// retried automatically.
type DeviceError struct {
	// Device names the failing source.
	Device string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("audioio: device %q: %v", e.Device, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *DeviceError) Unwrap() error {
	return e.Cause
}

// IsDeviceError reports whether err is, or wraps, a DeviceError.
func IsDeviceError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr)
}
