package model

import "errors"

// Sentinel errors for model validation.
var (
	ErrUnknownEventType = errors.New("unknown event type")
)
