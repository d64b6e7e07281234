package domain

import "time"

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// App is one tracked application. Identifier is the provider-assigned key
// and the only field lookups are made on.
type App struct {
	ID            int64     `db:"id" json:"id"`
	Identifier    string    `db:"identifier" json:"identifier"`
	Name          string    `db:"name" json:"name"`
	Platform      Platform  `db:"platform" json:"platform"`
	Developer     string    `db:"developer" json:"developer"`
	Category      string    `db:"category" json:"category"`
	URL           string    `db:"url" json:"url"`
	FirstSeenAt   time.Time `db:"first_seen_at" json:"first_seen_at"`
	LastUpdatedAt time.Time `db:"last_updated_at" json:"last_updated_at"`
}

// Metric is an immutable point-in-time observation of an App.
type Metric struct {
	ID          int64     `db:"id" json:"id"`
	AppID       int64     `db:"app_id" json:"app_id"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	Rating      *float64  `db:"rating" json:"rating,omitempty"`
	RatingCount int64     `db:"rating_count" json:"rating_count"`
	Version     string    `db:"version" json:"version"`
	Source      string    `db:"source" json:"source"`
	Confidence  float64   `db:"confidence" json:"confidence"`

	// Reserved for estimation; the fetch path leaves them nil.
	EstimatedDAU *int64 `db:"estimated_dau" json:"estimated_dau,omitempty"`
	EstimatedMAU *int64 `db:"estimated_mau" json:"estimated_mau,omitempty"`
	RankOverall  *int   `db:"rank_overall" json:"rank_overall,omitempty"`
	RankCategory *int   `db:"rank_category" json:"rank_category,omitempty"`
}

const DefaultConfidence = 1.0

// Snapshot is an App's descriptive fields merged with the Metric recorded
// for it during one collection pass.
type Snapshot struct {
	Target string `json:"target"`
	App    App    `json:"app"`
	Metric Metric `json:"metric"`
}

func (s Snapshot) Name() string {
	return s.App.Name
}

// RatingValue returns the rating, or 0 when the provider had none.
func (s Snapshot) RatingValue() float64 {
	if s.Metric.Rating == nil {
		return 0
	}
	return *s.Metric.Rating
}

func (s Snapshot) HasRating() bool {
	return s.Metric.Rating != nil
}
