package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"app_radar/internal/domain"
	"app_radar/testdata/utils"
)

func snap(name string, rating *float64, reviews int64, category, developer string) domain.Snapshot {
	return domain.Snapshot{
		Target: name,
		App:    domain.App{Identifier: name, Name: name, Category: category, Developer: developer},
		Metric: domain.Metric{Rating: rating, RatingCount: reviews},
	}
}

func names(entries []domain.DigestEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Snapshot.Name()
	}
	return out
}

func TestSynthesize_TwoApps(t *testing.T) {
	report := Synthesize([]domain.Snapshot{
		snap("A", utils.Ptr(4.9), 500_000, "Social", "Alpha"),
		snap("B", utils.Ptr(4.6), 2_000_000, "Photo", "Beta"),
	}, 2)

	assert.Equal(t, []string{"B", "A"}, names(report.Ranked))
	require.NotNil(t, report.KPI.EngagementChampion)
	assert.Equal(t, "B", report.KPI.EngagementChampion.Name())
	require.NotNil(t, report.KPI.SatisfactionLeader)
	assert.Equal(t, "A", report.KPI.SatisfactionLeader.Name())
	assert.InDelta(t, 4.75, report.KPI.AverageRating, 1e-9)
	assert.Equal(t, int64(2_500_000), report.KPI.TotalReviews)

	assert.Equal(t, 1, report.Ranked[0].Rank)
	assert.Equal(t, domain.RatingTierMedium, report.Ranked[0].RatingTier)
	assert.Equal(t, domain.EngagementHigh, report.Ranked[0].EngagementTier)
	assert.Equal(t, domain.RatingTierTop, report.Ranked[1].RatingTier)
	assert.Equal(t, domain.EngagementMedium, report.Ranked[1].EngagementTier)
}

func TestSynthesize_Empty(t *testing.T) {
	report := Synthesize(nil, 10)

	require.NotNil(t, report)
	assert.Zero(t, report.KPI.AverageRating)
	assert.Zero(t, report.KPI.TotalReviews)
	assert.Nil(t, report.KPI.EngagementChampion)
	assert.Nil(t, report.KPI.SatisfactionLeader)
	assert.Empty(t, report.Ranked)
	assert.Empty(t, report.Insights)
}

func TestSynthesize_TopNTruncatesAndStableTies(t *testing.T) {
	report := Synthesize([]domain.Snapshot{
		snap("first", utils.Ptr(4.0), 10, "", ""),
		snap("big", utils.Ptr(4.0), 99, "", ""),
		snap("second", utils.Ptr(4.0), 10, "", ""),
		snap("third", utils.Ptr(4.0), 10, "", ""),
	}, 3)

	assert.Equal(t, []string{"big", "first", "second"}, names(report.Ranked))
	assert.Equal(t, 4, report.Total)
}

func TestSynthesize_TopNBeyondCountReturnsAll(t *testing.T) {
	input := []domain.Snapshot{
		snap("a", nil, 1, "", ""),
		snap("b", nil, 2, "", ""),
	}

	assert.Equal(t, []string{"b", "a"}, names(Synthesize(input, 10).Ranked))
	assert.Equal(t, []string{"b", "a"}, names(Synthesize(input, 0).Ranked))
}

func TestSynthesize_KPITieBreaksOnFirstOccurrence(t *testing.T) {
	report := Synthesize([]domain.Snapshot{
		snap("unrated", nil, 7, "", ""),
		snap("x", utils.Ptr(4.8), 7, "", ""),
		snap("y", utils.Ptr(4.8), 7, "", ""),
	}, 10)

	assert.Equal(t, "unrated", report.KPI.EngagementChampion.Name())
	assert.Equal(t, "x", report.KPI.SatisfactionLeader.Name())
	assert.InDelta(t, 4.8, report.KPI.AverageRating, 1e-9)
	assert.Equal(t, int64(21), report.KPI.TotalReviews)
}

func TestSynthesize_NoRatingsAverageIsZero(t *testing.T) {
	report := Synthesize([]domain.Snapshot{snap("a", nil, 100, "", "")}, 5)

	assert.Zero(t, report.KPI.AverageRating)
	assert.Nil(t, report.KPI.SatisfactionLeader)
	assert.Equal(t, domain.RatingTierBase, report.Ranked[0].RatingTier)
}

func TestSynthesize_InsightsUseFullList(t *testing.T) {
	input := []domain.Snapshot{
		snap("CapCut", utils.Ptr(4.7), 5_000_000, "Photo & Video", "Bytedance"),
		snap("Lemon8", utils.Ptr(4.8), 900_000, "Social Networking", "Bytedance"),
		snap("Threads", utils.Ptr(4.4), 1_500_000, "Social Networking", "Meta"),
		snap("Poe", utils.Ptr(4.6), 1_000_000, "Productivity", "Quora"),
		snap("Temu", utils.Ptr(4.7), 4_000_000, "Shopping", "Temu"),
	}

	report := Synthesize(input, 1)
	require.Len(t, report.Ranked, 1)
	require.Len(t, report.Insights, 4)

	byKind := map[domain.InsightKind]domain.Insight{}
	for _, in := range report.Insights {
		byKind[in.Kind] = in
	}

	assert.Equal(t, 3, byKind[domain.InsightHighRated].Count)
	// 1,000,000 exactly is not "more than" a million
	assert.Equal(t, 3, byKind[domain.InsightHighEngaged].Count)
	assert.Equal(t, "Social Networking", byKind[domain.InsightTopCategory].Subject)
	assert.Equal(t, 2, byKind[domain.InsightTopCategory].Count)
	assert.Equal(t, "Bytedance", byKind[domain.InsightTopDeveloper].Subject)
	assert.Contains(t, byKind[domain.InsightTopDeveloper].Text, "Bytedance has 2 apps")
}

func TestSynthesize_InsightsOnlyWhenTriggered(t *testing.T) {
	report := Synthesize([]domain.Snapshot{
		snap("a", utils.Ptr(3.9), 10, "Games", "One"),
		snap("b", utils.Ptr(4.1), 20, "Utilities", "Two"),
	}, 10)

	require.Len(t, report.Insights, 1)
	assert.Equal(t, domain.InsightTopCategory, report.Insights[0].Kind)
	// tie between categories goes to the first one seen
	assert.Equal(t, "Games", report.Insights[0].Subject)
}

func TestSynthesize_UnknownCategoryLabel(t *testing.T) {
	report := Synthesize([]domain.Snapshot{snap("a", nil, 0, "", "")}, 10)

	require.Len(t, report.Insights, 1)
	assert.Equal(t, "Unknown", report.Insights[0].Subject)
}

func TestSynthesize_MissingDevelopersAreNotGrouped(t *testing.T) {
	report := Synthesize([]domain.Snapshot{
		snap("a", nil, 1, "Games", ""),
		snap("b", nil, 2, "Games", ""),
		snap("c", nil, 3, "Games", "Solo"),
	}, 10)

	for _, in := range report.Insights {
		assert.NotEqual(t, domain.InsightTopDeveloper, in.Kind, in.Text)
	}
	require.Len(t, report.Insights, 1)
	assert.Equal(t, "Games", report.Insights[0].Subject)
}

func TestTiers(t *testing.T) {
	ratingCases := []struct {
		rating float64
		want   domain.RatingTier
	}{
		{5.0, domain.RatingTierTop},
		{4.8, domain.RatingTierTop},
		{4.79, domain.RatingTierHigh},
		{4.7, domain.RatingTierHigh},
		{4.5, domain.RatingTierMedium},
		{4.49, domain.RatingTierBase},
		{0, domain.RatingTierBase},
	}
	for _, tc := range ratingCases {
		got, _ := RatingTier(tc.rating)
		assert.Equal(t, tc.want, got, "rating %v", tc.rating)
	}

	engagementCases := []struct {
		reviews int64
		want    domain.EngagementTier
	}{
		{3_000_000, domain.EngagementVeryHigh},
		{2_999_999, domain.EngagementHigh},
		{1_000_000, domain.EngagementHigh},
		{100_000, domain.EngagementMedium},
		{99_999, domain.EngagementEmerging},
		{0, domain.EngagementEmerging},
	}
	for _, tc := range engagementCases {
		got, _ := EngagementTier(tc.reviews)
		assert.Equal(t, tc.want, got, "reviews %d", tc.reviews)
	}
}
