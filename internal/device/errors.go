package device

import "errors"

// Domain errors for the device package.
//
// Discovery itself never fails; these are returned by lookups and the
// cloud client:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID is not in the current list.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrCloudUnavailable is returned when the cloud discovery endpoint
	// cannot be reached or answers with a non-200 status.
	ErrCloudUnavailable = errors.New("device: cloud discovery unavailable")

	// ErrCloudResponse is returned when the cloud discovery body cannot be decoded.
	ErrCloudResponse = errors.New("device: invalid cloud discovery response")
)
