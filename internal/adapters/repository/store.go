// Package repository stores the user and place rosters and the append-only event log.
package repository

import (
	"context"

	"github.com/okian/placerank/internal/domain/model"
)

// Counts summarizes the repository contents.
type Counts struct {
	Users  int
	Places int
	Events int
}

// Store provides read/write access to the rosters and the event log.
// Every successful write bumps the version reported by Snapshot.
type Store interface {
	// AddUser registers a user. Returns ErrDuplicate if the key exists.
	AddUser(ctx context.Context, u model.User) error
	// AddPlace registers a place. Returns ErrDuplicate if the key exists.
	AddPlace(ctx context.Context, p model.Place) error
	// Append adds an event to the log. Returns ErrDuplicate for a known event ID
	// and ErrUnknownUser / ErrUnknownPlace for keys outside the rosters.
	Append(ctx context.Context, e model.Event) error

	// HasUser and HasPlace report roster membership.
	HasUser(ctx context.Context, key string) (bool, error)
	HasPlace(ctx context.Context, key string) (bool, error)

	// Snapshot returns a consistent copy of rosters and log in insertion order.
	Snapshot(ctx context.Context) (model.Snapshot, error)
	// Version returns the current write version.
	Version(ctx context.Context) (uint64, error)
	// Counts returns roster and log sizes.
	Counts(ctx context.Context) (Counts, error)

	Close() error
}

// checkEvent validates the fields every backend requires.
func checkEvent(e model.Event) error {
	switch {
	case e.ID == "":
		return ErrMissingEventID
	case !e.Type.Valid():
		return model.ErrUnknownEventType
	}
	return nil
}
