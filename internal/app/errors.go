package service

import "errors"

// Sentinel kinds returned by Service methods. The HTTP layer maps them to status codes.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnknownUser   = errors.New("unknown user")
	ErrUnknownPlace  = errors.New("unknown place")
	ErrBackpressure  = errors.New("ingestion queue full")
)
