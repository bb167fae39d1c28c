package pipeline

import (
	"math"

	"github.com/hawthorn-media/keyword-cli/internal/model"
)

// seasonalVolatilityThreshold marks a keyword as seasonal when the
// coefficient of variation exceeds it.
const seasonalVolatilityThreshold = 0.30

// Seasonality patterns.
const (
	PatternUnknown   = "Unknown"
	PatternNoData    = "No Data"
	PatternEvergreen = "Evergreen"
	PatternWinter    = "Winter Peak"
	PatternSpring    = "Spring Peak"
	PatternSummer    = "Summer Peak"
	PatternFall      = "Fall Peak"
	PatternSeasonal  = "Seasonal"
)

// AnalyzeSeasonality derives the seasonal profile from the most recent
// twelve monthly observations. It never fails: missing history yields
// the Unknown sentinel, an all-zero history the No Data sentinel, both
// with a neutral multiplier.
func AnalyzeSeasonality(monthly []model.MonthlySearch) model.Seasonality {
	if len(monthly) == 0 {
		return model.Seasonality{Pattern: PatternUnknown, Multiplier: 1.0}
	}

	if len(monthly) > 12 {
		monthly = monthly[len(monthly)-12:]
	}

	var sum float64
	for _, m := range monthly {
		sum += float64(m.SearchVolume)
	}
	mean := sum / float64(len(monthly))
	if mean == 0 {
		return model.Seasonality{Pattern: PatternNoData, Multiplier: 1.0}
	}

	var sqSum float64
	peak := monthly[0]
	for _, m := range monthly {
		d := float64(m.SearchVolume) - mean
		sqSum += d * d
		if m.SearchVolume > peak.SearchVolume {
			peak = m
		}
	}
	volatility := math.Sqrt(sqSum/float64(len(monthly))) / mean

	s := model.Seasonality{
		PeakMonth:  peak.Month,
		Volatility: volatility,
		Multiplier: float64(monthly[len(monthly)-1].SearchVolume) / mean,
		IsSeasonal: volatility > seasonalVolatilityThreshold,
	}
	s.Pattern = seasonalPattern(s.IsSeasonal, s.PeakMonth)
	return s
}

func seasonalPattern(isSeasonal bool, peakMonth int) string {
	if !isSeasonal {
		return PatternEvergreen
	}
	switch peakMonth {
	case 11, 12, 1:
		return PatternWinter
	case 2, 3, 4:
		return PatternSpring
	case 5, 6, 7:
		return PatternSummer
	case 8, 9, 10:
		return PatternFall
	default:
		return PatternSeasonal
	}
}

// applySeasonality annotates a keyword record with its derived profile.
func applySeasonality(k *model.Keyword) {
	s := AnalyzeSeasonality(k.MonthlySearches)
	k.SeasonalPattern = s.Pattern
	k.PeakMonth = s.PeakMonth
	k.Volatility = s.Volatility
	k.Multiplier = s.Multiplier
	k.IsSeasonal = s.IsSeasonal
}
