package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawthorn-media/keyword-cli/internal/model"
)

func TestBuildRecommendationsGroupsByPriorityAndCategory(t *testing.T) {
	var scored []model.Keyword
	for i := 0; i < 6; i++ {
		scored = append(scored, model.Keyword{
			Keyword:         fmt.Sprintf("mortgage keyword %d", i),
			SearchVolume:    1000,
			CPC:             fp(4.0),
			PriorityTier:    model.PriorityHigh,
			CategoryCluster: "Mortgage Services",
			TotalScore:      80,
		})
	}
	// Too few keywords to justify a campaign of their own.
	scored = append(scored, model.Keyword{
		Keyword:         "stray keyword",
		PriorityTier:    model.PriorityLow,
		CategoryCluster: "Uncategorized",
		TotalScore:      20,
	})

	rec := BuildRecommendations(scored, 5)

	require.Len(t, rec.CampaignStructure, 1)
	group, ok := rec.CampaignStructure["High Priority - Mortgage Services"]
	require.True(t, ok)
	assert.Equal(t, 6, group.Keywords)
	assert.GreaterOrEqual(t, group.DailyBudget, 10.0)
	assert.LessOrEqual(t, group.DailyBudget, 500.0)

	assert.Contains(t, rec.BudgetAllocation["High Priority"], "6 keywords")
	assert.Contains(t, rec.BudgetAllocation["Low Priority"], "1 keywords")
}

func TestBuildRecommendationsLaunchSequence(t *testing.T) {
	var scored []model.Keyword
	for i := 0; i < 30; i++ {
		scored = append(scored, model.Keyword{
			Keyword:    fmt.Sprintf("keyword %d", i),
			TotalScore: float64(i),
		})
	}

	rec := BuildRecommendations(scored, 5)

	require.Len(t, rec.LaunchSequence, 20)
	assert.Equal(t, "keyword 29", rec.LaunchSequence[0].Keyword)
	for i := 1; i < len(rec.LaunchSequence); i++ {
		assert.GreaterOrEqual(t, rec.LaunchSequence[i-1].TotalScore, rec.LaunchSequence[i].TotalScore)
	}
}

func TestBuildRecommendationsSeasonalCalendar(t *testing.T) {
	scored := []model.Keyword{
		{Keyword: "christmas plumbing", IsSeasonal: true, SeasonalPattern: PatternWinter, PeakMonth: 12},
		{Keyword: "holiday pipe freeze", IsSeasonal: true, SeasonalPattern: PatternWinter, PeakMonth: 12},
		{Keyword: "january burst pipe", IsSeasonal: true, SeasonalPattern: PatternWinter, PeakMonth: 1},
		{Keyword: "steady keyword", IsSeasonal: false, SeasonalPattern: PatternEvergreen},
	}

	rec := BuildRecommendations(scored, 5)

	require.Len(t, rec.SeasonalCalendar, 1)
	winter := rec.SeasonalCalendar[PatternWinter]
	assert.Equal(t, 3, winter.Keywords)
	assert.Equal(t, 12, winter.PeakMonth)
}

func TestBuildRecommendationsEmptyInput(t *testing.T) {
	rec := BuildRecommendations(nil, 5)
	assert.Empty(t, rec.CampaignStructure)
	assert.Empty(t, rec.LaunchSequence)
	assert.Empty(t, rec.SeasonalCalendar)
}

func TestGroupDailyBudgetClamp(t *testing.T) {
	small := []model.Keyword{{Keyword: "tiny", SearchVolume: 10, CPC: fp(0.5)}}
	assert.Equal(t, 10.0, groupDailyBudget(small))

	var huge []model.Keyword
	for i := 0; i < 50; i++ {
		huge = append(huge, model.Keyword{Keyword: "big", SearchVolume: 50000, CPC: fp(10)})
	}
	assert.Equal(t, 500.0, groupDailyBudget(huge))
}
