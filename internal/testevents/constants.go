package testevents

import "time"

// Submission outcomes.
const (
	resultSuccess   = "success"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)

// Runner configuration constants.
const (
	ProcessingPollInterval = 250 * time.Millisecond
	ProcessingTimeout      = 2 * time.Minute
	ProgressInterval       = time.Second
	PercentageMultiplier   = 100
	RecommendationSize     = 3
)

// Generator constants.
const (
	minTagsPerPlace = 1
	maxTagsPerPlace = 4
	duplicateEvery  = 50 // every Nth event is resubmitted verbatim
)

var tagVocabulary = []string{ //nolint:gochecknoglobals // fixed generator vocabulary
	"coffee", "wifi", "brunch", "vegan", "bar", "live-music", "museum", "park",
	"bakery", "rooftop", "books", "kids", "outdoor", "late-night", "seafood", "tea",
}
