package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("already exists")
	ErrUnknownUser    = errors.New("unknown user")
	ErrUnknownPlace   = errors.New("unknown place")
	ErrMissingKey     = errors.New("missing key")
	ErrMissingEventID = errors.New("missing event id")
	ErrClosed         = errors.New("store closed")
)
