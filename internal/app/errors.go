package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrMissingEventID   = errors.New("perceived event has no id")
	ErrBackpressure     = errors.New("dispatch queue full")
	ErrAlreadyAnalyzing = errors.New("item already has an analysis in flight")
)
