package content

import (
	"github.com/samber/lo"

	"github.com/okian/placerank/internal/domain/model"
)

// Profile maps a tag to the accumulated interest weight of a user.
type Profile map[string]int

// BuildProfile sums the activity weights of a user's events per tag of the
// place each event refers to. Events on unknown places are ignored.
func BuildProfile(userKey string, places []model.Place, events []model.Event, weights model.Weights) Profile {
	byKey := make(map[string]model.Place, len(places))
	for _, p := range places {
		if _, dup := byKey[p.Key]; !dup {
			byKey[p.Key] = p
		}
	}

	profile := Profile{}
	for _, e := range events {
		if e.UserKey != userKey {
			continue
		}
		p, ok := byKey[e.PlaceKey]
		if !ok {
			continue
		}
		w := weights.Of(e.Type)
		for _, t := range lo.Uniq(p.Tags) {
			profile[t] += w
		}
	}
	return profile
}

// Visited returns the keys of places the user has any activity on.
func Visited(userKey string, events []model.Event) []string {
	mine := lo.Filter(events, func(e model.Event, _ int) bool { return e.UserKey == userKey })
	return lo.Uniq(lo.Map(mine, func(e model.Event, _ int) string { return e.PlaceKey }))
}
