package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/placerank/internal/domain/model"
)

// Wire records for backends that persist JSON values.

type userRecord struct {
	Key string `json:"key"`
}

type placeRecord struct {
	Key    string   `json:"key"`
	Name   string   `json:"name"`
	Tags   []string `json:"tags,omitempty"`
	Rating float64  `json:"rating"`
	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
}

type eventRecord struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	UserKey  string    `json:"user_key"`
	PlaceKey string    `json:"place_key"`
	TS       time.Time `json:"ts"`
	Points   int       `json:"points,omitempty"`
}

func encodeUser(u model.User) ([]byte, error) {
	return json.Marshal(userRecord{Key: u.Key})
}

func encodePlace(p model.Place) ([]byte, error) {
	return json.Marshal(placeRecord{
		Key: p.Key, Name: p.Name, Tags: p.Tags, Rating: p.Rating, Lat: p.Lat, Lng: p.Lng,
	})
}

func encodeEvent(e model.Event) ([]byte, error) {
	return json.Marshal(eventRecord{
		ID: e.ID, Type: string(e.Type), UserKey: e.UserKey, PlaceKey: e.PlaceKey, TS: e.TS.UTC(), Points: e.Points,
	})
}

func decodeUsers(raw []string) ([]model.User, error) {
	out := make([]model.User, 0, len(raw))
	for i, s := range raw {
		var r userRecord
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("decode user %d: %w", i, err)
		}
		out = append(out, model.User{Key: r.Key})
	}
	return out, nil
}

func decodePlaces(raw []string) ([]model.Place, error) {
	out := make([]model.Place, 0, len(raw))
	for i, s := range raw {
		var r placeRecord
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("decode place %d: %w", i, err)
		}
		out = append(out, model.Place{
			Key: r.Key, Name: r.Name, Tags: r.Tags, Rating: r.Rating, Lat: r.Lat, Lng: r.Lng,
		})
	}
	return out, nil
}

func decodeEvents(raw []string) ([]model.Event, error) {
	out := make([]model.Event, 0, len(raw))
	for i, s := range raw {
		var r eventRecord
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		t, err := model.ParseEventType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		out = append(out, model.Event{
			ID: r.ID, Type: t, UserKey: r.UserKey, PlaceKey: r.PlaceKey, TS: r.TS, Points: r.Points,
		})
	}
	return out, nil
}
