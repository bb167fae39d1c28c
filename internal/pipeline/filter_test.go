package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
)

func fp(v float64) *float64 { return &v }

func defaultFilterConfig() config.FilterConfig {
	return config.FilterConfig{
		MinSearchVolume: 100,
		MaxSearchVolume: 50000,
		MinCPC:          0.5,
		MaxCPC:          20,
		MaxDifficulty:   70,
		AllowedIntents:  []string{"commercial", "transactional"},
		MinWordCount:    2,
		MaxWordCount:    6,
	}
}

func TestFilterKeepsOnlyIntersection(t *testing.T) {
	f, err := NewFilter(defaultFilterConfig())
	require.NoError(t, err)

	keywords := []model.Keyword{
		{Keyword: "emergency plumber toronto", SearchVolume: 1200, CPC: fp(4.5), Difficulty: fp(40), Intent: model.IntentCommercial},
		// Fails volume only.
		{Keyword: "rare plumbing question", SearchVolume: 10, CPC: fp(4.5), Difficulty: fp(40), Intent: model.IntentCommercial},
		// Fails intent only.
		{Keyword: "what is a plumber", SearchVolume: 1200, CPC: fp(4.5), Difficulty: fp(40), Intent: model.IntentInformational},
		// Fails difficulty only.
		{Keyword: "best plumber near", SearchVolume: 1200, CPC: fp(4.5), Difficulty: fp(90), Intent: model.IntentTransactional},
	}

	kept, counts, err := f.Apply(keywords)
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Equal(t, "emergency plumber toronto", kept[0].Keyword)

	byRule := map[string]int{}
	for _, c := range counts {
		byRule[c.Rule] = c.Kept
	}
	// Each rule is counted against the full population, not the
	// survivors of earlier rules.
	assert.Equal(t, 3, byRule["search_volume"])
	assert.Equal(t, 3, byRule["intent"])
	assert.Equal(t, 3, byRule["difficulty"])
	assert.Equal(t, 4, byRule["cpc"])
	assert.Equal(t, 4, byRule["word_count"])
	assert.Equal(t, 4, byRule["exclusions"])
}

func TestFilterRemovingARuleNeverShrinksTheKeptSet(t *testing.T) {
	keywords := []model.Keyword{
		{Keyword: "emergency plumber toronto", SearchVolume: 1200, CPC: fp(4.5), Difficulty: fp(40), Intent: model.IntentCommercial},
		{Keyword: "cheap diy fix", SearchVolume: 500, CPC: fp(1.0), Difficulty: fp(20), Intent: model.IntentInformational},
		{Keyword: "licensed plumber quote", SearchVolume: 80, CPC: fp(6.0), Difficulty: fp(35), Intent: model.IntentTransactional},
	}

	strict, err := NewFilter(defaultFilterConfig())
	require.NoError(t, err)
	keptStrict, _, _ := strict.Apply(append([]model.Keyword(nil), keywords...))

	relaxedCfg := defaultFilterConfig()
	relaxedCfg.AllowedIntents = nil
	relaxed, err := NewFilter(relaxedCfg)
	require.NoError(t, err)
	keptRelaxed, _, err := relaxed.Apply(append([]model.Keyword(nil), keywords...))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(keptRelaxed), len(keptStrict))
}

func TestFilterMissingValueDefaults(t *testing.T) {
	cfg := config.FilterConfig{MaxDifficulty: 60, MaxCPC: 20}
	f, err := NewFilter(cfg)
	require.NoError(t, err)

	keywords := []model.Keyword{
		// Missing difficulty reads as 50, under the 60 cap; missing CPC
		// passes the max bound.
		{Keyword: "no metrics keyword", SearchVolume: 500, Intent: model.IntentCommercial},
		{Keyword: "too hard keyword", SearchVolume: 500, Difficulty: fp(80), Intent: model.IntentCommercial},
	}

	kept, _, err := f.Apply(keywords)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "no metrics keyword", kept[0].Keyword)
}

func TestFilterMissingCPCFailsMinBound(t *testing.T) {
	cfg := config.FilterConfig{MinCPC: 0.5}
	f, err := NewFilter(cfg)
	require.NoError(t, err)

	_, counts, err := f.Apply([]model.Keyword{
		{Keyword: "unknown cpc keyword", SearchVolume: 500, Intent: model.IntentCommercial},
	})
	assert.ErrorIs(t, err, ErrEmptyResult)
	for _, c := range counts {
		if c.Rule == "cpc" {
			assert.Equal(t, 0, c.Kept)
		}
	}
}

func TestFilterExclusionPatternsAreCaseInsensitive(t *testing.T) {
	cfg := config.FilterConfig{ExcludePatterns: []string{`\bfree\b`}}
	f, err := NewFilter(cfg)
	require.NoError(t, err)

	kept, _, err := f.Apply([]model.Keyword{
		{Keyword: "FREE plumbing estimate", SearchVolume: 100, Intent: model.IntentCommercial},
		{Keyword: "freezing pipes repair", SearchVolume: 100, Intent: model.IntentCommercial},
	})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "freezing pipes repair", kept[0].Keyword)
}

func TestFilterInvalidExclusionPattern(t *testing.T) {
	_, err := NewFilter(config.FilterConfig{ExcludePatterns: []string{"("}})
	assert.Error(t, err)
}

func TestFilterEmptyResultIsTerminal(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{MinSearchVolume: 1000000})
	require.NoError(t, err)

	_, _, err = f.Apply([]model.Keyword{
		{Keyword: "small keyword", SearchVolume: 10},
	})
	assert.ErrorIs(t, err, ErrEmptyResult)
}
