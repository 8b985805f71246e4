package haptic

import "errors"

var (
	// ErrConfigMissing means a platform parameter is absent or invalid.
	// Attach fails and nothing is left acquired.
	ErrConfigMissing = errors.New("haptic: configuration missing")

	// ErrResourceUnavailable means the PWM channel, regulator or register
	// bus could not be acquired at attach.
	ErrResourceUnavailable = errors.New("haptic: resource unavailable")

	// ErrIntensityOutOfRange rejects an intensity outside [0, MaxIntensity].
	ErrIntensityOutOfRange = errors.New("haptic: intensity out of range")

	ErrInvalidDuration = errors.New("haptic: negative duration")
	ErrClosed          = errors.New("haptic: device detached")
)
