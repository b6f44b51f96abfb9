// Package seed loads an initial roster and event history from a YAML file.
package seed

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/placerank/internal/domain/model"
)

// ErrInvalidSeed reports a seed file whose content cannot be used.
var ErrInvalidSeed = errors.New("invalid seed file")

// Roster is the decoded content of a seed file.
type Roster struct {
	Users  []model.User
	Places []model.Place
	Events []model.Event
}

type fileUser struct {
	Key string `koanf:"key"`
}

type filePlace struct {
	Key    string   `koanf:"key"`
	Name   string   `koanf:"name"`
	Tags   []string `koanf:"tags"`
	Rating float64  `koanf:"rating"`
	Lat    float64  `koanf:"lat"`
	Lng    float64  `koanf:"lng"`
}

type fileEvent struct {
	ID       string `koanf:"id"`
	Type     string `koanf:"type"`
	UserKey  string `koanf:"user_key"`
	PlaceKey string `koanf:"place_key"`
	TS       string `koanf:"ts"`
	Points   int    `koanf:"points"`
}

type fileRoster struct {
	Users  []fileUser  `koanf:"users"`
	Places []filePlace `koanf:"places"`
	Events []fileEvent `koanf:"events"`
}

// Load reads a seed file:
//
//	users:  [{key}]
//	places: [{key?, name, tags, rating, lat, lng}]
//	events: [{id?, type, user_key, place_key, ts (RFC 3339), points?}]
//
// Places without a key get one derived from name and coordinates. Event
// timestamps are required so derived event IDs are stable across loads.
func Load(path string) (Roster, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Roster{}, fmt.Errorf("load seed %s: %w", path, err)
	}

	var raw fileRoster
	if err := k.UnmarshalWithConf("", &raw, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Roster{}, fmt.Errorf("%w: %s: %w", ErrInvalidSeed, path, err)
	}
	return raw.roster()
}

func (f fileRoster) roster() (Roster, error) {
	out := Roster{
		Users:  make([]model.User, 0, len(f.Users)),
		Places: make([]model.Place, 0, len(f.Places)),
		Events: make([]model.Event, 0, len(f.Events)),
	}
	for _, u := range f.Users {
		out.Users = append(out.Users, model.User{Key: model.NormalizeUserKey(u.Key)})
	}
	for i, p := range f.Places {
		key := p.Key
		if key == "" {
			if p.Name == "" {
				return Roster{}, fmt.Errorf("%w: place %d has neither key nor name", ErrInvalidSeed, i)
			}
			key = model.PlaceKey(p.Name, p.Lat, p.Lng)
		}
		out.Places = append(out.Places, model.Place{
			Key: key, Name: p.Name, Tags: p.Tags, Rating: p.Rating, Lat: p.Lat, Lng: p.Lng,
		})
	}
	for i, e := range f.Events {
		t, err := model.ParseEventType(e.Type)
		if err != nil {
			return Roster{}, fmt.Errorf("%w: event %d: %w", ErrInvalidSeed, i, err)
		}
		ts, err := time.Parse(time.RFC3339, e.TS)
		if err != nil {
			return Roster{}, fmt.Errorf("%w: event %d: ts: %w", ErrInvalidSeed, i, err)
		}
		out.Events = append(out.Events, model.Event{
			ID: e.ID, Type: t, UserKey: model.NormalizeUserKey(e.UserKey), PlaceKey: e.PlaceKey, TS: ts.UTC(), Points: e.Points,
		})
	}
	return out, nil
}
