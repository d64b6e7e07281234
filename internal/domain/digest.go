package domain

import "time"

type RatingTier string

const (
	RatingTierTop    RatingTier = "top"
	RatingTierHigh   RatingTier = "high"
	RatingTierMedium RatingTier = "medium"
	RatingTierBase   RatingTier = "base"
)

type EngagementTier string

const (
	EngagementVeryHigh EngagementTier = "very_high"
	EngagementHigh     EngagementTier = "high"
	EngagementMedium   EngagementTier = "medium"
	EngagementEmerging EngagementTier = "emerging"
)

type InsightKind string

const (
	InsightHighRated    InsightKind = "high_rated"
	InsightHighEngaged  InsightKind = "high_engagement"
	InsightTopCategory  InsightKind = "top_category"
	InsightTopDeveloper InsightKind = "top_developer"
)

// KPI is the headline block of a digest.
type KPI struct {
	AverageRating      float64   `json:"average_rating"`
	TotalReviews       int64     `json:"total_reviews"`
	EngagementChampion *Snapshot `json:"engagement_champion,omitempty"`
	SatisfactionLeader *Snapshot `json:"satisfaction_leader,omitempty"`
}

type DigestEntry struct {
	Rank           int            `json:"rank"`
	Snapshot       Snapshot       `json:"snapshot"`
	RatingTier     RatingTier     `json:"rating_tier"`
	RatingEmoji    string         `json:"rating_emoji"`
	EngagementTier EngagementTier `json:"engagement_tier"`
	EngagementTag  string         `json:"engagement_tag"`
}

type Insight struct {
	Kind    InsightKind `json:"kind"`
	Subject string      `json:"subject,omitempty"`
	Count   int         `json:"count"`
	Text    string      `json:"text"`
}

// DigestReport is rebuilt for every run and never stored.
type DigestReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	KPI         KPI           `json:"kpi"`
	Ranked      []DigestEntry `json:"ranked"`
	Insights    []Insight     `json:"insights"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
}
