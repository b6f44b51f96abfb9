package testevents

import (
	"time"

	"github.com/okian/placerank/internal/domain/types"
)

// Config holds configuration for the traffic run
type Config struct {
	BaseURL    string        // Base URL of the service
	NumUsers   int           // Number of users to register
	NumPlaces  int           // Number of places to register
	NumEvents  int           // Number of events to generate
	TopN       int           // Number of ranking entries to fetch
	Sample     int           // Number of users whose recommendations are checked
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Random seed for reproducible traffic
	OutputFile string        // Output file for generated traffic
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Event is the POST /events payload
type Event struct {
	EventID  string `json:"event_id"`
	Type     string `json:"type"`
	UserKey  string `json:"user_key"`
	PlaceKey string `json:"place_key"`
	TS       string `json:"ts"`
}

// Traffic is everything a run generates.
type Traffic struct {
	Users  []types.User  `json:"users"`
	Places []types.Place `json:"places"`
	Events []Event       `json:"events"`
}

// AckResponse represents the response from event submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics
type Stats struct {
	UsersRegistered   int
	PlacesRegistered  int
	EventsGenerated   int
	EventsSubmitted   int
	EventsSuccessful  int
	EventsDuplicate   int
	EventsFailed      int
	RankingEntries    int
	RecommendationsOK int
	ColdStarts        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
