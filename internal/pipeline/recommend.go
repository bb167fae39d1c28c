package pipeline

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/model"
)

const (
	minGroupDailyBudget = 10.0
	maxGroupDailyBudget = 500.0
	launchSequenceSize  = 20
)

// CampaignGroup recommends one campaign: a (priority tier, category)
// group with at least the configured minimum of keywords.
type CampaignGroup struct {
	Priority    model.PriorityTier `json:"priority"`
	Category    string             `json:"category"`
	Keywords    int                `json:"keyword_count"`
	DailyBudget float64            `json:"recommended_daily_budget"`
}

// LaunchEntry is one row of the launch sequence.
type LaunchEntry struct {
	Keyword    string             `json:"keyword"`
	TotalScore float64            `json:"total_score"`
	Priority   model.PriorityTier `json:"priority_tier"`
	Category   string             `json:"category_cluster"`
}

// SeasonalEntry summarizes the seasonal keywords sharing one pattern.
type SeasonalEntry struct {
	Keywords  int `json:"keyword_count"`
	PeakMonth int `json:"peak_month"`
}

// Recommendations is the campaign_recommendations.json document.
type Recommendations struct {
	CampaignStructure map[string]CampaignGroup `json:"campaign_structure"`
	BudgetAllocation  map[string]string        `json:"budget_allocation"`
	LaunchSequence    []LaunchEntry            `json:"launch_sequence"`
	SeasonalCalendar  map[string]SeasonalEntry `json:"seasonal_calendar"`
}

// BuildRecommendations derives the campaign plan from a scored keyword
// set. minGroupKeywords drops groups too small to run as campaigns;
// values below one default to five.
func BuildRecommendations(scored []model.Keyword, minGroupKeywords int) *Recommendations {
	if minGroupKeywords < 1 {
		minGroupKeywords = 5
	}

	rec := &Recommendations{
		CampaignStructure: map[string]CampaignGroup{},
		BudgetAllocation:  map[string]string{},
		SeasonalCalendar:  map[string]SeasonalEntry{},
	}

	// Campaign structure by (priority, category).
	type groupKey struct {
		priority model.PriorityTier
		category string
	}
	groups := map[groupKey][]model.Keyword{}
	for i := range scored {
		key := groupKey{scored[i].PriorityTier, scored[i].CategoryCluster}
		groups[key] = append(groups[key], scored[i])
	}
	for key, kws := range groups {
		if len(kws) < minGroupKeywords {
			continue
		}
		name := fmt.Sprintf("%s Priority - %s", key.priority, key.category)
		rec.CampaignStructure[name] = CampaignGroup{
			Priority:    key.priority,
			Category:    key.category,
			Keywords:    len(kws),
			DailyBudget: groupDailyBudget(kws),
		}
	}

	// Budget allocation percentages by priority tier.
	total := len(scored)
	if total > 0 {
		tiers := map[model.PriorityTier]int{}
		for i := range scored {
			tiers[scored[i].PriorityTier]++
		}
		for _, tier := range []model.PriorityTier{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
			n := tiers[tier]
			rec.BudgetAllocation[string(tier)+" Priority"] = fmt.Sprintf(
				"%.1f%% of budget (%d keywords)", float64(n)/float64(total)*100, n)
		}
	}

	// Launch sequence: the highest-scored keywords.
	ranked := append([]model.Keyword(nil), scored...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalScore > ranked[j].TotalScore
	})
	n := launchSequenceSize
	if len(ranked) < n {
		n = len(ranked)
	}
	for i := 0; i < n; i++ {
		rec.LaunchSequence = append(rec.LaunchSequence, LaunchEntry{
			Keyword:    ranked[i].Keyword,
			TotalScore: ranked[i].TotalScore,
			Priority:   ranked[i].PriorityTier,
			Category:   ranked[i].CategoryCluster,
		})
	}

	// Seasonal calendar: per-pattern counts and the most common peak.
	peaks := map[string]map[int]int{}
	for i := range scored {
		if !scored[i].IsSeasonal {
			continue
		}
		p := scored[i].SeasonalPattern
		if peaks[p] == nil {
			peaks[p] = map[int]int{}
		}
		peaks[p][scored[i].PeakMonth]++
	}
	for pattern, months := range peaks {
		entry := SeasonalEntry{}
		best := -1
		for month, count := range months {
			entry.Keywords += count
			if count > best || (count == best && month < entry.PeakMonth) {
				best = count
				entry.PeakMonth = month
			}
		}
		rec.SeasonalCalendar[pattern] = entry
	}

	zap.L().With(zap.String("stage", "recommend")).Info("campaign recommendations created",
		zap.Int("campaigns", len(rec.CampaignStructure)),
		zap.Int("launch_sequence", len(rec.LaunchSequence)),
		zap.Int("seasonal_patterns", len(rec.SeasonalCalendar)),
	)
	return rec
}

// groupDailyBudget targets clicks on 5% of the group's monthly volume at
// the group's average CPC, clamped to [10, 500]. Unknown CPC reads as
// 2.0, unknown volume as 100.
func groupDailyBudget(kws []model.Keyword) float64 {
	var cpcSum float64
	var volume float64
	for i := range kws {
		cpcSum += kws[i].CPCOr(2.0)
		if kws[i].SearchVolume > 0 {
			volume += float64(kws[i].SearchVolume)
		} else {
			volume += 100
		}
	}
	avgCPC := cpcSum / float64(len(kws))

	targetClicks := math.Max(10, volume*0.05)
	budget := clamp(targetClicks*avgCPC, minGroupDailyBudget, maxGroupDailyBudget)
	return math.Round(budget)
}
