package config

import "errors"

var (
	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownDriver indicates a storage driver name that is not supported.
	ErrUnknownDriver = errors.New("unknown storage driver")
)
