// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType names a user activity on a place.
type EventType string

// Known activity types.
const (
	CheckIn      EventType = "check_in"
	Liked        EventType = "liked"
	Unliked      EventType = "unliked"
	Bookmarked   EventType = "bookmarked"
	Unbookmarked EventType = "unbookmarked"
)

// eventNamespace scopes derived event IDs.
var eventNamespace = uuid.MustParse("4b5f0f3e-9a0c-5d2e-8e44-6a1c0d7f2b91")

// Valid reports whether t is one of the known activity types.
func (t EventType) Valid() bool {
	switch t {
	case CheckIn, Liked, Unliked, Bookmarked, Unbookmarked:
		return true
	}
	return false
}

// ParseEventType converts a client supplied string to an EventType.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
	return t, nil
}

// Event is an immutable activity fact. The event log is append-only.
type Event struct {
	ID       string    // unique id for idempotency
	Type     EventType // activity kind
	UserKey  string    // normalized user key
	PlaceKey string    // place key
	TS       time.Time // event timestamp
	Points   int       // optional points awarded by the host app
}

// DeriveEventID returns a deterministic ID built from the event content, so an
// identical resubmission without an explicit ID is recognised as a duplicate.
func DeriveEventID(e Event) string {
	name := fmt.Sprintf("%s|%s|%s|%d", e.Type, e.UserKey, e.PlaceKey, e.TS.UTC().UnixNano())
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

// Weights maps an activity type to its contribution to a tag profile.
type Weights map[EventType]int

// DefaultWeights returns the interest weight of each activity type.
func DefaultWeights() Weights {
	return Weights{
		CheckIn:      10,
		Bookmarked:   5,
		Liked:        3,
		Unliked:      -2,
		Unbookmarked: -2,
	}
}

// Of returns the weight of t, or 0 for unknown types.
func (w Weights) Of(t EventType) int {
	if w == nil {
		return DefaultWeights()[t]
	}
	return w[t]
}
