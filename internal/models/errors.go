package models

import "errors"

var (
	// ErrInvalidIdentifier is returned when a device identifier exceeds
	// MaxDeviceIDLength, or names no device where creation does not apply.
	ErrInvalidIdentifier = errors.New("invalid device identifier")

	// ErrMalformedTelemetry is returned when an inbound payload does not
	// parse into exactly three floats. No partial update is applied.
	ErrMalformedTelemetry = errors.New("malformed telemetry payload")

	// ErrNotFound is returned by store updates targeting an absent device.
	ErrNotFound = errors.New("device not found")

	// ErrInvalidSetting is returned for out-of-range configuration values.
	ErrInvalidSetting = errors.New("invalid setting value")
)
