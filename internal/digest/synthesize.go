// Package digest turns a collection snapshot into a ranked report.
package digest

import (
	"fmt"
	"sort"
	"time"

	"app_radar/internal/domain"
)

const (
	insightRatingThreshold  = 4.7
	insightReviewsThreshold = 1_000_000

	unknownLabel = "Unknown"
)

// Synthesize builds the digest for snapshots. KPIs and insights cover the
// whole list; the ranking is cut to topN (topN <= 0 keeps everything). Empty
// input yields a zeroed report.
func Synthesize(snapshots []domain.Snapshot, topN int) *domain.DigestReport {
	return &domain.DigestReport{
		GeneratedAt: time.Now().UTC(),
		KPI:         kpi(snapshots),
		Ranked:      rank(snapshots, topN),
		Insights:    insights(snapshots),
		Total:       len(snapshots),
		Succeeded:   len(snapshots),
	}
}

func kpi(snapshots []domain.Snapshot) domain.KPI {
	var (
		out      domain.KPI
		sum      float64
		rated    int
		champion = -1
		leader   = -1
	)

	for i, s := range snapshots {
		out.TotalReviews += s.Metric.RatingCount

		if champion < 0 || s.Metric.RatingCount > snapshots[champion].Metric.RatingCount {
			champion = i
		}

		if !s.HasRating() {
			continue
		}
		sum += s.RatingValue()
		rated++
		if leader < 0 || s.RatingValue() > snapshots[leader].RatingValue() {
			leader = i
		}
	}

	if rated > 0 {
		out.AverageRating = sum / float64(rated)
	}
	if champion >= 0 {
		c := snapshots[champion]
		out.EngagementChampion = &c
	}
	if leader >= 0 {
		l := snapshots[leader]
		out.SatisfactionLeader = &l
	}
	return out
}

func rank(snapshots []domain.Snapshot, topN int) []domain.DigestEntry {
	sorted := make([]domain.Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metric.RatingCount > sorted[j].Metric.RatingCount
	})

	if topN > 0 && topN < len(sorted) {
		sorted = sorted[:topN]
	}

	entries := make([]domain.DigestEntry, 0, len(sorted))
	for i, s := range sorted {
		ratingTier, emoji := RatingTier(s.RatingValue())
		engagementTier, tag := EngagementTier(s.Metric.RatingCount)
		entries = append(entries, domain.DigestEntry{
			Rank:           i + 1,
			Snapshot:       s,
			RatingTier:     ratingTier,
			RatingEmoji:    emoji,
			EngagementTier: engagementTier,
			EngagementTag:  tag,
		})
	}
	return entries
}

func insights(snapshots []domain.Snapshot) []domain.Insight {
	out := []domain.Insight{}
	if len(snapshots) == 0 {
		return out
	}

	var highRated, highEngaged int
	for _, s := range snapshots {
		if s.HasRating() && s.RatingValue() >= insightRatingThreshold {
			highRated++
		}
		if s.Metric.RatingCount > insightReviewsThreshold {
			highEngaged++
		}
	}

	if highRated > 0 {
		out = append(out, domain.Insight{
			Kind:  domain.InsightHighRated,
			Count: highRated,
			Text:  fmt.Sprintf("🌟 *High ratings*: %d apps rated 4.7 or above, overall satisfaction is strong", highRated),
		})
	}
	if highEngaged > 0 {
		out = append(out, domain.Insight{
			Kind:  domain.InsightHighEngaged,
			Count: highEngaged,
			Text:  fmt.Sprintf("🔥 *Engagement*: %d apps have more than 1M reviews", highEngaged),
		})
	}

	category, n := mostFrequent(snapshots, func(s domain.Snapshot) string { return s.App.Category }, unknownLabel)
	out = append(out, domain.Insight{
		Kind:    domain.InsightTopCategory,
		Subject: category,
		Count:   n,
		Text:    fmt.Sprintf("📊 *Category mix*: %s leads with %d apps", category, n),
	})

	// empty developers are not counted
	developer, n := mostFrequent(snapshots, func(s domain.Snapshot) string { return s.App.Developer }, "")
	if n > 1 {
		out = append(out, domain.Insight{
			Kind:    domain.InsightTopDeveloper,
			Subject: developer,
			Count:   n,
			Text:    fmt.Sprintf("🏢 *Top developer*: %s has %d apps on the list", developer, n),
		})
	}

	return out
}

// mostFrequent returns the most common key; ties go to the key seen first.
// Empty keys count as emptyLabel, or are skipped when emptyLabel is "".
func mostFrequent(snapshots []domain.Snapshot, key func(domain.Snapshot) string, emptyLabel string) (string, int) {
	counts := make(map[string]int)
	var order []string

	for _, s := range snapshots {
		k := key(s)
		if k == "" {
			if emptyLabel == "" {
				continue
			}
			k = emptyLabel
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	var best string
	bestCount := 0
	for _, k := range order {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best, bestCount
}
