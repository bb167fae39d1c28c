package pipeline

import (
	"math"

	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
)

// Scorer derives the seasonal profile and the five component scores for
// a batch, then combines them with the configured weights. Weights are
// validated at config load; the scorer never renormalizes them.
type Scorer struct {
	cfg    config.ScoringConfig
	logger *zap.Logger
}

// NewScorer builds a scorer with the given weights.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return &Scorer{
		cfg:    cfg,
		logger: zap.L().With(zap.String("stage", "score")),
	}
}

// Score annotates the batch in place. Volume normalization is relative
// to the batch, so a record's volume score is meaningful only within
// the batch it was scored in.
func (s *Scorer) Score(keywords []model.Keyword) []model.Keyword {
	minVol, maxVol := volumeRange(keywords)

	tiers := map[model.PriorityTier]int{}
	for i := range keywords {
		k := &keywords[i]
		applySeasonality(k)

		k.VolumeScore = volumeScore(k.SearchVolume, minVol, maxVol)
		k.IntentScore = intentScore(k.Intent)
		k.DifficultyScore = difficultyScore(k.Difficulty)
		k.CPCScore = cpcScore(k.CPC)
		k.SeasonalityScore = seasonalityScore(k.Multiplier)

		total := s.cfg.VolumeWeight*k.VolumeScore +
			s.cfg.IntentWeight*k.IntentScore +
			s.cfg.DifficultyWeight*k.DifficultyScore +
			s.cfg.CPCWeight*k.CPCScore +
			s.cfg.SeasonalityWeight*k.SeasonalityScore
		k.TotalScore = math.Round(total*100) / 100
		k.PriorityTier = priorityTier(k.TotalScore)
		tiers[k.PriorityTier]++
	}

	s.logger.Info("scoring complete",
		zap.Int("keywords", len(keywords)),
		zap.Int("high", tiers[model.PriorityHigh]),
		zap.Int("medium", tiers[model.PriorityMedium]),
		zap.Int("low", tiers[model.PriorityLow]),
	)
	return keywords
}

func volumeRange(keywords []model.Keyword) (int64, int64) {
	if len(keywords) == 0 {
		return 0, 0
	}
	minVol, maxVol := keywords[0].SearchVolume, keywords[0].SearchVolume
	for i := range keywords[1:] {
		v := keywords[i+1].SearchVolume
		if v < minVol {
			minVol = v
		}
		if v > maxVol {
			maxVol = v
		}
	}
	return minVol, maxVol
}

// volumeScore min-max normalizes within the batch. A flat batch scores
// neutral.
func volumeScore(volume, minVol, maxVol int64) float64 {
	if maxVol == minVol {
		return 50
	}
	return float64(volume-minVol) / float64(maxVol-minVol) * 100
}

func intentScore(intent model.Intent) float64 {
	switch intent {
	case model.IntentTransactional:
		return 100
	case model.IntentCommercial:
		return 85
	case model.IntentNavigational:
		return 50
	case model.IntentInformational:
		return 25
	default:
		return 50
	}
}

// difficultyScore inverts difficulty; unknown reads as neutral.
func difficultyScore(difficulty *float64) float64 {
	if difficulty == nil {
		return 50
	}
	return clamp(100-*difficulty, 0, 100)
}

// cpcScore rewards the commercially viable band. Band bounds are
// lower-inclusive: a CPC of exactly 2.0 scores 100, 1.999 scores 75.
func cpcScore(cpc *float64) float64 {
	if cpc == nil || *cpc <= 0 {
		return 50
	}
	v := *cpc
	switch {
	case v >= 2 && v <= 8:
		return 100
	case (v >= 1 && v < 2) || (v > 8 && v <= 12):
		return 75
	case (v >= 0.5 && v < 1) || (v > 12 && v <= 20):
		return 50
	default:
		return 25
	}
}

func seasonalityScore(multiplier float64) float64 {
	return clamp(multiplier*50, 0, 100)
}

func priorityTier(total float64) model.PriorityTier {
	switch {
	case total >= 70:
		return model.PriorityHigh
	case total >= 50:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
