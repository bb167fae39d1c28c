package pipeline

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
	"github.com/hawthorn-media/keyword-cli/pkg/dataforseo"
)

// platformDomains are never treated as competitors.
var platformDomains = map[string]struct{}{
	"google.com":     {},
	"facebook.com":   {},
	"youtube.com":    {},
	"linkedin.com":   {},
	"twitter.com":    {},
	"instagram.com":  {},
	"wikipedia.org":  {},
	"reddit.com":     {},
	"amazon.com":     {},
	"ebay.com":       {},
	"craigslist.org": {},
	"kijiji.ca":      {},
}

// SeedGenerator discovers keyword candidates across five channels. Each
// channel tolerates failure: it logs and contributes nothing.
type SeedGenerator struct {
	client *dataforseo.Client
	cfg    config.SeedConfig
	target config.TargetConfig
	logger *zap.Logger
}

// NewSeedGenerator builds the discovery stage.
func NewSeedGenerator(client *dataforseo.Client, cfg config.SeedConfig, target config.TargetConfig) *SeedGenerator {
	return &SeedGenerator{
		client: client,
		cfg:    cfg,
		target: target,
		logger: zap.L().With(zap.String("stage", "seed")),
	}
}

// Generate runs every discovery channel and deduplicates the union by
// lowercase trimmed keyword, first-seen source winning. An empty union
// is ErrNoKeywords.
func (g *SeedGenerator) Generate(ctx context.Context) ([]model.Keyword, error) {
	var all []model.Keyword
	seen := map[string]struct{}{}

	merge := func(channel string, kws []model.Keyword, err error) error {
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			g.logger.Warn("discovery channel failed, skipping",
				zap.String("channel", channel),
				zap.Error(err),
			)
			return nil
		}
		added := 0
		for i := range kws {
			key := kws[i].Key()
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, kws[i])
			added++
		}
		g.logger.Info("discovery channel complete",
			zap.String("channel", channel),
			zap.Int("returned", len(kws)),
			zap.Int("new", added),
		)
		return nil
	}

	if len(g.cfg.IndustryTerms) > 0 {
		kws, err := g.trending(ctx)
		if err := merge("trending", kws, err); err != nil {
			return nil, err
		}
	}

	for _, term := range g.cfg.BaseTerms {
		kws, err := g.client.RelatedKeywords(ctx, term,
			g.target.LocationCode, g.target.LanguageCode,
			g.cfg.RelatedDepth, g.cfg.RelatedLimit)
		if err := merge("related:"+term, kws, err); err != nil {
			return nil, err
		}
	}

	if len(g.cfg.BusinessTerms) > 0 {
		kws, err := g.keywordIdeas(ctx)
		if err := merge("ideas", kws, err); err != nil {
			return nil, err
		}
	}

	for _, term := range g.cfg.BusinessTerms {
		kws, err := g.client.KeywordSuggestions(ctx, term,
			g.target.LocationCode, g.target.LanguageCode,
			g.cfg.SuggestionsLimit)
		if err := merge("suggestions:"+term, kws, err); err != nil {
			return nil, err
		}
	}

	for _, domain := range g.competitorDomains(ctx) {
		kws, err := g.client.RankedKeywords(ctx, domain,
			g.target.LocationCode, g.target.LanguageCode,
			g.cfg.CompetitorLimit)
		for i := range kws {
			kws[i].Source = "competitor_site"
		}
		if err := merge("competitor:"+domain, kws, err); err != nil {
			return nil, err
		}
	}

	if len(all) == 0 {
		return nil, ErrNoKeywords
	}
	g.logger.Info("seed discovery complete", zap.Int("keywords", len(all)))
	return all, nil
}

// trending pulls the market's top searches and keeps those mentioning a
// configured industry term.
func (g *SeedGenerator) trending(ctx context.Context) ([]model.Keyword, error) {
	kws, err := g.client.TopSearches(ctx,
		g.target.LocationCode, g.target.LanguageCode, g.cfg.TrendingLimit)
	if err != nil {
		return nil, err
	}

	relevant := kws[:0]
	for i := range kws {
		if containsAnyTerm(kws[i].Keyword, g.cfg.IndustryTerms) {
			kws[i].Source = "trending_industry"
			relevant = append(relevant, kws[i])
		}
	}
	g.logger.Info("industry relevance filter",
		zap.Int("before", len(kws)),
		zap.Int("after", len(relevant)),
	)
	return relevant, nil
}

// keywordIdeas queries ideas over the business terms, batched to the
// provider's seed cap.
func (g *SeedGenerator) keywordIdeas(ctx context.Context) ([]model.Keyword, error) {
	var all []model.Keyword
	terms := g.cfg.BusinessTerms
	for start := 0; start < len(terms); start += dataforseo.MaxSeedsPerIdeasCall {
		end := start + dataforseo.MaxSeedsPerIdeasCall
		if end > len(terms) {
			end = len(terms)
		}
		kws, err := g.client.KeywordIdeas(ctx, terms[start:end],
			g.target.LocationCode, g.target.LanguageCode, g.cfg.IdeasLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, kws...)
	}
	return all, nil
}

// competitorDomains joins the configured competitor list with domains
// discovered from the SERPs of the business terms.
func (g *SeedGenerator) competitorDomains(ctx context.Context) []string {
	var domains []string
	seen := map[string]struct{}{}
	add := func(domain string) {
		d := dataforseo.CleanDomain(domain)
		if !g.validCompetitorDomain(d) {
			return
		}
		if _, dup := seen[d]; dup {
			return
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}

	for _, d := range g.cfg.CompetitorDomains {
		add(d)
	}

	if g.cfg.DiscoverCompetitors && len(g.cfg.BusinessTerms) > 0 {
		terms := g.cfg.BusinessTerms
		if len(terms) > 3 {
			terms = terms[:3]
		}
		comps, err := g.client.SERPCompetitors(ctx, terms,
			g.target.LocationCode, g.target.LanguageCode, 0)
		if err != nil {
			g.logger.Warn("competitor discovery failed, using configured domains only", zap.Error(err))
		} else {
			sort.SliceStable(comps, func(i, j int) bool { return comps[i].ETV > comps[j].ETV })
			for i := range comps {
				add(comps[i].DomainName())
			}
		}
	}

	max := g.cfg.MaxCompetitors
	if max > 0 && len(domains) > max {
		domains = domains[:max]
	}
	return domains
}

func (g *SeedGenerator) validCompetitorDomain(domain string) bool {
	if len(domain) < 4 || !strings.Contains(domain, ".") ||
		strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	if _, excluded := platformDomains[domain]; excluded {
		return false
	}
	if own := dataforseo.CleanDomain(g.cfg.YourDomain); own != "" && domain == own {
		return false
	}
	return true
}

// containsAnyTerm reports whether the keyword contains any term as a
// whole word.
func containsAnyTerm(keyword string, terms []string) bool {
	words := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(keyword)) {
		words[w] = struct{}{}
	}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(term, " ") {
			if strings.Contains(" "+strings.ToLower(keyword)+" ", " "+term+" ") {
				return true
			}
			continue
		}
		if _, ok := words[term]; ok {
			return true
		}
	}
	return false
}
