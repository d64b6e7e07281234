package domain

import "time"

// FetchResult is what a data source returns for one lookup. It is consumed
// by the collector and never persisted as such.
type FetchResult struct {
	Source        string
	AppIdentifier string
	Timestamp     time.Time
	Record        Record
	Data          map[string]any
	Metadata      map[string]any
}

// Record is the typed subset of provider fields the pipeline relies on.
type Record struct {
	Name                      string
	Platform                  Platform
	Developer                 string
	Category                  string
	Genres                    []string
	URL                       string
	Rating                    *float64
	RatingCount               int64
	Version                   string
	Price                     float64
	Currency                  string
	ReleaseDate               string
	CurrentVersionReleaseDate string
}

// App builds the descriptive entity for the result.
func (r *FetchResult) App() *App {
	platform := r.Record.Platform
	if platform == "" {
		platform = PlatformIOS
	}
	return &App{
		Identifier: r.AppIdentifier,
		Name:       r.Record.Name,
		Platform:   platform,
		Developer:  r.Record.Developer,
		Category:   r.Record.Category,
		URL:        r.Record.URL,
	}
}

// Metric builds the observation for the result.
func (r *FetchResult) Metric() *Metric {
	return &Metric{
		Timestamp:   r.Timestamp,
		Rating:      r.Record.Rating,
		RatingCount: r.Record.RatingCount,
		Version:     r.Record.Version,
		Source:      r.Source,
		Confidence:  DefaultConfidence,
	}
}
