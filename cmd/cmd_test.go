package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawthorn-media/keyword-cli/internal/artifacts"
	"github.com/hawthorn-media/keyword-cli/internal/model"
)

func fp(v float64) *float64 { return &v }

func writeSnapshot(t *testing.T, path string, kws []model.Keyword) {
	t.Helper()
	require.NoError(t, artifacts.WriteKeywordCSV(path, kws))
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestFilterCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "enriched.csv")
	output := filepath.Join(dir, "filtered.csv")

	writeSnapshot(t, input, []model.Keyword{
		{Keyword: "private mortgage broker", SearchVolume: 1200, CPC: fp(6.5), Difficulty: fp(25), Intent: model.IntentCommercial},
		{Keyword: "mortgage definition", SearchVolume: 5000, CPC: fp(1.0), Difficulty: fp(10), Intent: model.IntentInformational},
	})

	require.NoError(t, execute(t, "filter", "--input", input, "--output", output))

	kept, err := artifacts.ReadKeywordCSV(output)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "private mortgage broker", kept[0].Keyword)
	assert.NotEmpty(t, kept[0].DifficultyTier)
}

func TestScoreCommandSortsByScore(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "filtered.csv")
	output := filepath.Join(dir, "scored.csv")

	writeSnapshot(t, input, []model.Keyword{
		{Keyword: "weak keyword", SearchVolume: 100, CPC: fp(0.3), Difficulty: fp(90), Intent: model.IntentInformational},
		{Keyword: "strong keyword", SearchVolume: 2000, CPC: fp(4.0), Difficulty: fp(20), Intent: model.IntentTransactional},
	})

	require.NoError(t, execute(t, "score", "--input", input, "--output", output))

	scored, err := artifacts.ReadKeywordCSV(output)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "strong keyword", scored[0].Keyword)
	assert.Greater(t, scored[0].TotalScore, scored[1].TotalScore)
	assert.NotEmpty(t, scored[0].PriorityTier)
}

func TestExportCommandWritesCampaignFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scored.csv")
	outDir := filepath.Join(dir, "export")

	writeSnapshot(t, input, []model.Keyword{
		{Keyword: "emergency plumber toronto", SearchVolume: 1200, CPC: fp(4.5), Difficulty: fp(25), Intent: model.IntentCommercial, TotalScore: 80, PriorityTier: model.PriorityHigh},
	})

	require.NoError(t, execute(t, "export", "--input", input, "--output-dir", outDir))

	_, err := os.Stat(filepath.Join(outDir, "google_ads", "google_ads_easy_wins.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "negative_keywords.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "campaign_recommendations.json"))
	assert.NoError(t, err)
}

func TestRunsListEmptyLedger(t *testing.T) {
	t.Setenv("KEYWORD_STORE_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	assert.NoError(t, execute(t, "runs", "list"))
}
