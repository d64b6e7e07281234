package digest

import "app_radar/internal/domain"

const (
	ratingTop    = 4.8
	ratingHigh   = 4.7
	ratingMedium = 4.5

	engagementVeryHigh = 3_000_000
	engagementHigh     = 1_000_000
	engagementMedium   = 100_000
)

// RatingTier buckets an average rating. A missing rating counts as 0.
func RatingTier(rating float64) (domain.RatingTier, string) {
	switch {
	case rating >= ratingTop:
		return domain.RatingTierTop, "🌟"
	case rating >= ratingHigh:
		return domain.RatingTierHigh, "⭐️"
	case rating >= ratingMedium:
		return domain.RatingTierMedium, "✨"
	default:
		return domain.RatingTierBase, "⚡️"
	}
}

func EngagementTier(reviews int64) (domain.EngagementTier, string) {
	switch {
	case reviews >= engagementVeryHigh:
		return domain.EngagementVeryHigh, "🔥 very high"
	case reviews >= engagementHigh:
		return domain.EngagementHigh, "🚀 high"
	case reviews >= engagementMedium:
		return domain.EngagementMedium, "📈 medium"
	default:
		return domain.EngagementEmerging, "💡 emerging"
	}
}
