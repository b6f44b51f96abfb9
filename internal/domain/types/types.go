// Package types contains common types used across the application
package types

// RankedPlace is one row of the IL ranking as returned by the API.
type RankedPlace struct {
	Rank     int     `json:"rank"`
	PlaceKey string  `json:"place_key"`
	ISF      float64 `json:"isf"`
	ISP      float64 `json:"isp"`
}

// Recommendation is a recommendation list for a user.
type Recommendation struct {
	UserKey   string   `json:"user_key"`
	PlaceKeys []string `json:"place_keys"`
	Strategy  string   `json:"strategy"`
}

// SimilarPlace is a place similar to a source place.
type SimilarPlace struct {
	PlaceKey   string  `json:"place_key"`
	Similarity float64 `json:"similarity"`
}

// User is a registered user.
type User struct {
	Key string `json:"key"`
}

// Place is a registered place.
type Place struct {
	Key    string   `json:"key"`
	Name   string   `json:"name"`
	Tags   []string `json:"tags"`
	Rating float64  `json:"rating"`
	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
}
