package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
	"github.com/hawthorn-media/keyword-cli/pkg/dataforseo"
)

// Enricher backfills missing keyword difficulty and reports metric
// coverage. The discovery endpoints already supply volume, CPC and
// intent, so difficulty is the only field fetched here.
type Enricher struct {
	client *dataforseo.Client
	target config.TargetConfig
	logger *zap.Logger
}

// NewEnricher builds the enrichment stage.
func NewEnricher(client *dataforseo.Client, target config.TargetConfig) *Enricher {
	return &Enricher{
		client: client,
		target: target,
		logger: zap.L().With(zap.String("stage", "enrich")),
	}
}

// Enrich fills missing difficulty in provider-sized batches. A failed
// batch is logged and skipped; only context cancellation aborts.
func (e *Enricher) Enrich(ctx context.Context, keywords []model.Keyword) ([]model.Keyword, error) {
	var missing []string
	index := map[string][]int{}
	for i := range keywords {
		if keywords[i].Difficulty != nil {
			continue
		}
		key := keywords[i].Key()
		if len(index[key]) == 0 {
			missing = append(missing, key)
		}
		index[key] = append(index[key], i)
	}
	e.logger.Info("difficulty backfill needed",
		zap.Int("keywords", len(keywords)),
		zap.Int("missing", len(missing)),
	)

	filled := 0
	for start := 0; start < len(missing); start += dataforseo.MaxKeywordsPerDifficulty {
		end := start + dataforseo.MaxKeywordsPerDifficulty
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		scores, err := e.client.BulkKeywordDifficulty(ctx, batch,
			e.target.LocationCode, e.target.LanguageCode)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			e.logger.Warn("difficulty batch failed, skipping",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			continue
		}

		for key, score := range scores {
			s := score
			for _, i := range index[model.NormalizeKeyword(key)] {
				keywords[i].Difficulty = &s
				filled++
			}
		}
	}

	e.logCoverage(keywords, filled)
	return keywords, nil
}

func (e *Enricher) logCoverage(keywords []model.Keyword, filled int) {
	var withVolume, withCPC, withDifficulty int
	intents := map[model.Intent]int{}
	for i := range keywords {
		if keywords[i].SearchVolume > 0 {
			withVolume++
		}
		if keywords[i].CPC != nil {
			withCPC++
		}
		if keywords[i].Difficulty != nil {
			withDifficulty++
		}
		intents[keywords[i].Intent]++
	}

	e.logger.Info("enrichment complete",
		zap.Int("keywords", len(keywords)),
		zap.Int("difficulty_filled", filled),
		zap.Int("with_volume", withVolume),
		zap.Int("with_cpc", withCPC),
		zap.Int("with_difficulty", withDifficulty),
	)
	e.logger.Info("intent distribution",
		zap.Int("commercial", intents[model.IntentCommercial]),
		zap.Int("transactional", intents[model.IntentTransactional]),
		zap.Int("navigational", intents[model.IntentNavigational]),
		zap.Int("informational", intents[model.IntentInformational]),
		zap.Int("unknown", intents[model.IntentUnknown]),
	)
}
