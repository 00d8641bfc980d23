package config

import (
	"errors"
	"fmt"
)

// Sentinel kinds for configuration errors.
var (
	ErrEmptyAddr          = errors.New("addr must not be empty")
	ErrInvalidPasses      = errors.New("max_passes must be at least 1")
	ErrInvalidThreshold   = errors.New("confidence thresholds must be in 1..100")
	ErrInvalidConcurrency = errors.New("max_concurrent_analyses must be at least 1")
)

// wrapLoadError tags external loader failures.
func wrapLoadError(err error) error {
	return fmt.Errorf("loading config: %w", err)
}
