package model

// Snapshot is an immutable view of the rosters and the event log at a given
// version of the repository.
type Snapshot struct {
	Version uint64
	Users   []User
	Places  []Place
	Events  []Event
}
