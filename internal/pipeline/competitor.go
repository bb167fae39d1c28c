package pipeline

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
	"github.com/hawthorn-media/keyword-cli/pkg/dataforseo"
)

const (
	highValueKeywordCap  = 200
	topCompetitorCount   = 15
	deepAnalysisCount    = 10
	detailedMetricsCount = 5
	competitorKeywordCap = 1000
)

// CompetitorMetrics is one scored competitor domain.
type CompetitorMetrics struct {
	Domain        string  `json:"domain"`
	ETV           float64 `json:"etv"`
	KeywordsCount int64   `json:"keywords_count"`
	TopPositions  int64   `json:"top_positions"`
	Score         float64 `json:"score"`
}

// GapKeyword is a keyword a competitor ranks for that the configured own
// domain also contests.
type GapKeyword struct {
	Keyword      string `json:"keyword"`
	Competitor   string `json:"competitor"`
	SearchVolume int64  `json:"search_volume"`
}

// CompetitorAnalysis is the competitor_metrics.json artifact.
type CompetitorAnalysis struct {
	TopCompetitors []CompetitorMetrics `json:"top_competitors"`
	GapKeywords    []GapKeyword        `json:"gap_keywords,omitempty"`
	DomainMetrics  []CompetitorMetrics `json:"domain_metrics,omitempty"`
}

// CompetitorAnalyzer discovers the domains contesting the high-value
// keywords and merges their ranking keywords into the working set.
type CompetitorAnalyzer struct {
	client *dataforseo.Client
	seed   config.SeedConfig
	target config.TargetConfig
	logger *zap.Logger
}

// NewCompetitorAnalyzer builds the competitor stage.
func NewCompetitorAnalyzer(client *dataforseo.Client, seed config.SeedConfig, target config.TargetConfig) *CompetitorAnalyzer {
	return &CompetitorAnalyzer{
		client: client,
		seed:   seed,
		target: target,
		logger: zap.L().With(zap.String("stage", "competitor")),
	}
}

// Analyze extends the enriched set with competitor keywords and returns
// the analysis artifact. The stage tolerates failure: when the SERP
// lookup fails the input passes through unchanged.
func (a *CompetitorAnalyzer) Analyze(ctx context.Context, enriched []model.Keyword) ([]model.Keyword, *CompetitorAnalysis, error) {
	analysis := &CompetitorAnalysis{}

	highValue := selectHighValueKeywords(enriched)
	a.logger.Info("high-value keywords selected", zap.Int("keywords", len(highValue)))
	if len(highValue) == 0 {
		return enriched, analysis, nil
	}

	serp, err := a.client.SERPCompetitors(ctx, highValue,
		a.target.LocationCode, a.target.LanguageCode, 0)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, err
		}
		a.logger.Warn("serp competitor lookup failed, skipping competitor analysis", zap.Error(err))
		return enriched, analysis, nil
	}

	competitors := a.scoreCompetitors(serp)
	if len(competitors) == 0 {
		a.logger.Warn("no valid competitors after filtering")
		return enriched, analysis, nil
	}
	analysis.TopCompetitors = competitors
	for i, c := range competitors {
		if i >= deepAnalysisCount {
			break
		}
		a.logger.Info("top competitor",
			zap.Int("rank", i+1),
			zap.String("domain", c.Domain),
			zap.Float64("score", c.Score),
		)
	}

	merged := a.mergeCompetitorKeywords(ctx, enriched, competitors)

	if own := dataforseo.CleanDomain(a.seed.YourDomain); own != "" {
		analysis.GapKeywords = a.gapAnalysis(ctx, own, competitors)
	}
	analysis.DomainMetrics = a.domainMetrics(ctx, competitors)

	a.logger.Info("competitor analysis complete",
		zap.Int("competitors", len(competitors)),
		zap.Int("keywords_before", len(enriched)),
		zap.Int("keywords_after", len(merged)),
	)
	return merged, analysis, nil
}

// selectHighValueKeywords prefers keywords with real volume and CPC,
// falling back to the highest-volume keywords.
func selectHighValueKeywords(keywords []model.Keyword) []string {
	ranked := append([]model.Keyword(nil), keywords...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SearchVolume > ranked[j].SearchVolume
	})

	var out []string
	for i := range ranked {
		if ranked[i].SearchVolume > 100 && ranked[i].CPCOr(0) > 1.0 {
			out = append(out, ranked[i].Keyword)
			if len(out) == highValueKeywordCap {
				return out
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	for i := range ranked {
		out = append(out, ranked[i].Keyword)
		if len(out) == highValueKeywordCap {
			break
		}
	}
	return out
}

// scoreCompetitors filters platform and own domains, then ranks by
// weighted normalized traffic, keyword count and top positions.
func (a *CompetitorAnalyzer) scoreCompetitors(serp []dataforseo.CompetitorItem) []CompetitorMetrics {
	own := dataforseo.CleanDomain(a.seed.YourDomain)

	var candidates []CompetitorMetrics
	for i := range serp {
		domain := dataforseo.CleanDomain(serp[i].DomainName())
		if domain == "" || domain == own {
			continue
		}
		if _, excluded := platformDomains[domain]; excluded {
			continue
		}
		candidates = append(candidates, CompetitorMetrics{
			Domain:        domain,
			ETV:           serp[i].ETV,
			KeywordsCount: serp[i].KeywordCount(),
			TopPositions:  serp[i].TopPositions(),
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	etv := make([]float64, len(candidates))
	counts := make([]float64, len(candidates))
	tops := make([]float64, len(candidates))
	for i, c := range candidates {
		etv[i] = c.ETV
		counts[i] = float64(c.KeywordsCount)
		tops[i] = float64(c.TopPositions)
	}
	etv = normalizeSeries(etv)
	counts = normalizeSeries(counts)
	tops = normalizeSeries(tops)
	for i := range candidates {
		candidates[i].Score = 0.4*etv[i] + 0.3*counts[i] + 0.3*tops[i]
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Domain < candidates[j].Domain
	})
	if len(candidates) > topCompetitorCount {
		candidates = candidates[:topCompetitorCount]
	}
	return candidates
}

// mergeCompetitorKeywords pulls ranking keywords for the strongest
// competitors and merges the new ones into the set.
func (a *CompetitorAnalyzer) mergeCompetitorKeywords(ctx context.Context, enriched []model.Keyword, competitors []CompetitorMetrics) []model.Keyword {
	seen := make(map[string]struct{}, len(enriched))
	for i := range enriched {
		seen[enriched[i].Key()] = struct{}{}
	}

	merged := enriched
	for i, c := range competitors {
		if i >= deepAnalysisCount {
			break
		}
		kws, err := a.client.RankedKeywords(ctx, c.Domain,
			a.target.LocationCode, a.target.LanguageCode, competitorKeywordCap)
		if err != nil {
			a.logger.Warn("competitor keyword extraction failed, skipping",
				zap.String("domain", c.Domain),
				zap.Error(err),
			)
			continue
		}

		added := 0
		for j := range kws {
			key := kws[j].Key()
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			kws[j].Source = "competitor_" + c.Domain
			merged = append(merged, kws[j])
			added++
		}
		a.logger.Info("competitor keywords merged",
			zap.String("domain", c.Domain),
			zap.Int("new", added),
		)
	}
	return merged
}

// gapAnalysis lists keywords the own domain and each top competitor both
// rank for.
func (a *CompetitorAnalyzer) gapAnalysis(ctx context.Context, own string, competitors []CompetitorMetrics) []GapKeyword {
	var gaps []GapKeyword
	for i, c := range competitors {
		if i >= detailedMetricsCount {
			break
		}
		kws, err := a.client.DomainIntersection(ctx, own, c.Domain,
			a.target.LocationCode, a.target.LanguageCode, competitorKeywordCap)
		if err != nil {
			a.logger.Warn("gap analysis failed, skipping",
				zap.String("domain", c.Domain),
				zap.Error(err),
			)
			continue
		}
		for j := range kws {
			gaps = append(gaps, GapKeyword{
				Keyword:      kws[j].Keyword,
				Competitor:   c.Domain,
				SearchVolume: kws[j].SearchVolume,
			})
		}
	}
	return gaps
}

// domainMetrics fetches the traffic profile of the strongest
// competitors for the metrics artifact.
func (a *CompetitorAnalyzer) domainMetrics(ctx context.Context, competitors []CompetitorMetrics) []CompetitorMetrics {
	var out []CompetitorMetrics
	for i, c := range competitors {
		if i >= detailedMetricsCount {
			break
		}
		items, err := a.client.DomainRankOverview(ctx, c.Domain,
			a.target.LocationCode, a.target.LanguageCode)
		if err != nil {
			a.logger.Warn("domain overview failed, skipping",
				zap.String("domain", c.Domain),
				zap.Error(err),
			)
			continue
		}
		for j := range items {
			m := CompetitorMetrics{Domain: c.Domain}
			if items[j].Metrics != nil && items[j].Metrics.Organic != nil {
				m.ETV = items[j].Metrics.Organic.ETV
				m.KeywordsCount = items[j].Metrics.Organic.Count
				m.TopPositions = items[j].Metrics.Organic.Pos1
			}
			out = append(out, m)
		}
	}
	return out
}

// normalizeSeries min-max normalizes to [0,1]; a flat series reads as
// 0.5 everywhere.
func normalizeSeries(vals []float64) []float64 {
	if len(vals) == 0 {
		return vals
	}
	minV, maxV := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float64, len(vals))
	if maxV == minV {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, v := range vals {
		out[i] = (v - minV) / (maxV - minV)
	}
	return out
}
