package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
)

func testExporter(t *testing.T) *Exporter {
	t.Helper()
	e, err := NewExporter(
		config.ExportConfig{Formats: []string{"csv"}},
		config.CampaignConfig{
			LandingPage:      "https://example.com",
			AssumedCTR:       0.02,
			AssumedImprShare: 0.10,
			DefaultAdGroup:   "General",
			AdGroupPhrases:   []string{"emergency", "drain"},
			AdGroupNames:     []string{"Emergency Services", "Drain Services"},
		},
		config.FilterConfig{ExcludePatterns: []string{`\bfree\b`, `very long pattern with many words`}},
	)
	require.NoError(t, err)
	return e
}

func TestAssignTierDecisionOrder(t *testing.T) {
	tests := []struct {
		name       string
		volume     int64
		difficulty *float64
		want       model.CampaignTier
	}{
		{"easy win", 150, fp(25), model.TierEasyWins},
		{"easy win beats high volume", 5000, fp(30), model.TierEasyWins},
		{"high volume", 5000, fp(55), model.TierHighVolume},
		{"long tail", 200, fp(38), model.TierLongTail},
		{"competitive", 600, fp(75), model.TierCompetitive},
		{"general", 200, fp(55), model.TierGeneral},
		{"low volume high difficulty", 100, fp(90), model.TierGeneral},
		{"unknown difficulty reads medium", 200, nil, model.TierGeneral},
	}
	for _, tt := range tests {
		k := model.Keyword{Keyword: "kw", SearchVolume: tt.volume, Difficulty: tt.difficulty}
		assert.Equal(t, tt.want, AssignTier(&k), tt.name)
	}
}

func TestRecommendMatchTypeOrderedRules(t *testing.T) {
	e := testExporter(t)

	tests := []struct {
		name       string
		keyword    string
		volume     int64
		difficulty *float64
		want       model.MatchType
	}{
		{"four words is exact", "bad credit mortgage lender near", 100, fp(50), model.MatchExact},
		{"high volume high difficulty is exact", "plumber toronto", 2000, fp(70), model.MatchExact},
		{"mid volume mid difficulty is phrase", "drain cleaning", 500, fp(45), model.MatchPhrase},
		{"low difficulty is broad", "pipe insulation", 50, fp(20), model.MatchBroad},
		{"default is phrase", "water heater", 50, fp(65), model.MatchPhrase},
	}
	for _, tt := range tests {
		k := model.Keyword{Keyword: tt.keyword, SearchVolume: tt.volume, Difficulty: tt.difficulty}
		assert.Equal(t, tt.want, e.RecommendMatchType(&k), tt.name)
	}
}

func TestRecommendMatchTypeHighValuePhrase(t *testing.T) {
	e, err := NewExporter(
		config.ExportConfig{},
		config.CampaignConfig{HighValuePhrases: []string{"mortgage broker"}},
		config.FilterConfig{},
	)
	require.NoError(t, err)

	k := model.Keyword{Keyword: "mortgage broker fees", SearchVolume: 200, Difficulty: fp(45)}
	assert.Equal(t, model.MatchExact, e.RecommendMatchType(&k))
}

func TestRecommendBid(t *testing.T) {
	tests := []struct {
		name       string
		cpc        *float64
		difficulty *float64
		volume     int64
		want       float64
	}{
		{"market cpc", fp(2.5), fp(50), 500, 2.5},
		{"high volume premium", fp(2.5), fp(50), 1500, 3.0},
		{"low volume discount", fp(2.5), fp(50), 30, 2.0},
		{"no cpc high difficulty", nil, fp(80), 500, 3.0},
		{"no cpc medium difficulty", nil, fp(50), 500, 2.0},
		{"no cpc low difficulty", nil, fp(20), 500, 1.0},
		{"clamped high", fp(40), fp(50), 2000, 10.0},
		{"clamped low", fp(0.1), fp(20), 10, 0.5},
	}
	for _, tt := range tests {
		k := model.Keyword{SearchVolume: tt.volume, CPC: tt.cpc, Difficulty: tt.difficulty}
		assert.InDelta(t, tt.want, RecommendBid(&k), 1e-9, tt.name)
	}
}

func TestRecommendBidAlwaysWithinBounds(t *testing.T) {
	cpcs := []*float64{nil, fp(0), fp(0.01), fp(1), fp(9.99), fp(50), fp(1000)}
	volumes := []int64{0, 10, 100, 5000}
	for _, cpc := range cpcs {
		for _, vol := range volumes {
			k := model.Keyword{SearchVolume: vol, CPC: cpc}
			bid := RecommendBid(&k)
			assert.GreaterOrEqual(t, bid, 0.5)
			assert.LessOrEqual(t, bid, 10.0)
		}
	}
}

func TestExportWritesCampaignFiles(t *testing.T) {
	e := testExporter(t)
	dir := t.TempDir()

	scored := []model.Keyword{
		{Keyword: "emergency plumber toronto", SearchVolume: 1200, CPC: fp(4.5), Difficulty: fp(25), Intent: model.IntentCommercial, TotalScore: 80},
		{Keyword: "drain cleaning service", SearchVolume: 600, CPC: fp(3.0), Difficulty: fp(45), Intent: model.IntentTransactional, TotalScore: 70},
		// Informational keywords never reach campaign files.
		{Keyword: "how drains work", SearchVolume: 900, CPC: fp(1.0), Difficulty: fp(20), Intent: model.IntentInformational, TotalScore: 40},
	}

	summary, ready, err := e.Export(dir, scored)
	require.NoError(t, err)
	require.Len(t, ready, 2)
	assert.Equal(t, 2, summary.ExportOverview.TotalCampaignKeywords)

	googlePath := filepath.Join(dir, "google_ads", "google_ads_easy_wins.csv")
	f, err := os.Open(googlePath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, []string{"Campaign", "Ad Group", "Keyword", "Match Type", "Max CPC", "Final URL", "Search Volume", "Competition"}, rows[0])
	assert.Equal(t, "Easy Wins", rows[1][0])
	assert.Equal(t, "Emergency Services", rows[1][1])
	assert.Equal(t, "emergency plumber toronto", rows[1][2])
	assert.Equal(t, "https://example.com", rows[1][5])

	_, err = os.Stat(filepath.Join(dir, "microsoft_ads", "microsoft_ads_easy_wins.csv"))
	assert.NoError(t, err)

	negPath := filepath.Join(dir, "negative_keywords.txt")
	neg, err := os.ReadFile(negPath)
	require.NoError(t, err)
	assert.Contains(t, string(neg), "free\n")

	var gotSummary ExportSummary
	data, err := os.ReadFile(filepath.Join(dir, "export_summary.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &gotSummary))
	assert.Equal(t, 2, gotSummary.ExportOverview.TotalCampaignKeywords)
	assert.NotEmpty(t, gotSummary.TierDistribution)
	assert.NotEmpty(t, gotSummary.BudgetEstimation.TierDailyBudgets)
}

func TestExportEmptyCampaignSetIsTerminal(t *testing.T) {
	e := testExporter(t)

	_, _, err := e.Export(t.TempDir(), []model.Keyword{
		{Keyword: "informational only", SearchVolume: 100, Intent: model.IntentInformational},
	})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestNegativeKeywordsMergeAndSort(t *testing.T) {
	e := testExporter(t)
	negatives := e.negativeKeywords()

	// Static list entries plus the short cleaned exclusion pattern;
	// the long pattern is dropped.
	assert.Contains(t, negatives, "free")
	assert.Contains(t, negatives, "diy")
	assert.NotContains(t, negatives, "very long pattern with many words")
	for i := 1; i < len(negatives); i++ {
		assert.LessOrEqual(t, negatives[i-1], negatives[i])
	}
	seen := map[string]int{}
	for _, n := range negatives {
		seen[n]++
		assert.Equal(t, 1, seen[n], n)
	}
}

func TestNewExporterRejectsMismatchedAdGroups(t *testing.T) {
	_, err := NewExporter(
		config.ExportConfig{},
		config.CampaignConfig{AdGroupPhrases: []string{"a", "b"}, AdGroupNames: []string{"A"}},
		config.FilterConfig{},
	)
	assert.Error(t, err)
}

// The canonical three-record flow: filtering drops the wrong-intent and
// low-volume records, and the survivor lands in the easy-wins tier.
func TestFilterToTierScenario(t *testing.T) {
	records := []model.Keyword{
		{Keyword: "private mortgage broker", SearchVolume: 1200, CPC: fp(6.5), Difficulty: fp(25), Intent: model.IntentCommercial},
		{Keyword: "mortgage definition", SearchVolume: 5000, CPC: fp(0.1), Difficulty: fp(10), Intent: model.IntentInformational},
		{Keyword: "bridge loan approval fast", SearchVolume: 80, CPC: fp(3.0), Difficulty: fp(55), Intent: model.IntentTransactional},
	}

	f, err := NewFilter(config.FilterConfig{
		MinSearchVolume: 100,
		AllowedIntents:  []string{"commercial", "transactional"},
	})
	require.NoError(t, err)

	kept, _, err := f.Apply(records)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "private mortgage broker", kept[0].Keyword)

	e := testExporter(t)
	assert.Equal(t, model.TierEasyWins, AssignTier(&kept[0]))
	// Three words, mid volume, low difficulty: the broad-match rule wins.
	assert.Equal(t, model.MatchBroad, e.RecommendMatchType(&kept[0]))
}
