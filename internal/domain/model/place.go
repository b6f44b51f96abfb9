package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// placeNamespace scopes place keys derived from immutable source fields.
var placeNamespace = uuid.MustParse("0d8c6f4a-3b1e-5f7a-9c2d-1e4b7a6f3c58")

// User is a member of the user roster.
type User struct {
	Key string
}

// Place is a member of the place roster. Tags keep their display order;
// matching treats them as a set.
type Place struct {
	Key    string
	Name   string
	Tags   []string
	Rating float64
	Lat    float64
	Lng    float64
}

// NormalizeUserKey trims and lower-cases a user key (usually an e-mail).
func NormalizeUserKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// PlaceKey derives a stable key from the place name and coordinates.
// Coordinates are rounded to 6 decimals so re-imports keep their identity.
func PlaceKey(name string, lat, lng float64) string {
	src := fmt.Sprintf("%s|%.6f|%.6f", strings.TrimSpace(name), lat, lng)
	return uuid.NewSHA1(placeNamespace, []byte(src)).String()
}

// HasTag reports whether the place carries tag.
func (p Place) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
