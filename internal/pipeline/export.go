package pipeline

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hawthorn-media/keyword-cli/internal/artifacts"
	"github.com/hawthorn-media/keyword-cli/internal/config"
	"github.com/hawthorn-media/keyword-cli/internal/model"
)

// Bid bounds in account currency.
const (
	minBid = 0.5
	maxBid = 10.0
)

// staticNegativeKeywords is the baseline negative list merged with the
// configured negatives and cleaned exclusion patterns.
var staticNegativeKeywords = []string{
	"free", "diy", "do it yourself", "course", "training", "education",
	"job", "jobs", "career", "employment", "salary", "wage",
	"cheap", "cheapest", "discount", "sale", "promotion",
	"review", "reviews", "complaint", "complaints", "scam",
	"definition", "meaning", "wiki",
}

// campaignTiers fixes the iteration order of tier exports.
var campaignTiers = []model.CampaignTier{
	model.TierEasyWins,
	model.TierHighVolume,
	model.TierLongTail,
	model.TierCompetitive,
	model.TierGeneral,
}

// ExportOverview summarizes one campaign export.
type ExportOverview struct {
	TotalCampaignKeywords     int     `json:"total_campaign_keywords"`
	TotalMonthlySearchVolume  int64   `json:"total_monthly_search_volume"`
	AverageRecommendedBid     float64 `json:"average_recommended_bid"`
	CampaignTiersCreated      int     `json:"campaign_tiers_created"`
	NegativeKeywordsGenerated int     `json:"negative_keywords_generated"`
	ExportedAt                string  `json:"exported_at"`
}

// BudgetEstimation carries campaign budget projections.
type BudgetEstimation struct {
	EstimatedMonthlyBudget float64            `json:"estimated_monthly_budget"`
	RecommendedDailyBudget float64            `json:"recommended_daily_budget"`
	TierDailyBudgets       map[string]float64 `json:"tier_daily_budgets"`
}

// ExportSummary is the export_summary.json document.
type ExportSummary struct {
	ExportOverview        ExportOverview   `json:"export_overview"`
	TierDistribution      map[string]int   `json:"tier_distribution"`
	MatchTypeDistribution map[string]int   `json:"match_type_distribution"`
	IntentDistribution    map[string]int   `json:"intent_distribution"`
	BudgetEstimation      BudgetEstimation `json:"budget_estimation"`
}

// Exporter turns a scored keyword set into campaign files for Google Ads
// and Microsoft Ads, plus negative keywords and a summary document.
type Exporter struct {
	exportCfg config.ExportConfig
	campaign  config.CampaignConfig
	filters   config.FilterConfig
	titler    cases.Caser
	logger    *zap.Logger
}

// NewExporter builds an exporter. The ad-group phrase and name lists
// pair up by index, so mismatched lengths are a configuration error.
func NewExporter(exportCfg config.ExportConfig, campaign config.CampaignConfig, filters config.FilterConfig) (*Exporter, error) {
	if len(campaign.AdGroupPhrases) != len(campaign.AdGroupNames) {
		return nil, eris.Errorf("export: %d ad_group_phrases but %d ad_group_names",
			len(campaign.AdGroupPhrases), len(campaign.AdGroupNames))
	}
	return &Exporter{
		exportCfg: exportCfg,
		campaign:  campaign,
		filters:   filters,
		titler:    cases.Title(language.English),
		logger:    zap.L().With(zap.String("stage", "export")),
	}, nil
}

// Export writes all campaign files under outDir and returns the summary.
// The campaign-ready subset keeps only commercial and transactional
// keywords longer than two characters. Exported records are final; no
// later stage mutates them.
func (e *Exporter) Export(outDir string, scored []model.Keyword) (*ExportSummary, []model.Keyword, error) {
	ready := e.prepare(scored)
	if len(ready) == 0 {
		return nil, nil, ErrEmptyResult
	}

	tiers := groupByTier(ready)
	negatives := e.negativeKeywords()

	if err := e.writeGoogleAds(outDir, tiers); err != nil {
		return nil, nil, err
	}
	if err := e.writeMicrosoftAds(outDir, tiers); err != nil {
		return nil, nil, err
	}
	if e.formatEnabled("xlsx") {
		if err := e.writeWorkbook(outDir, tiers); err != nil {
			return nil, nil, err
		}
	}
	if err := artifacts.WriteLines(filepath.Join(outDir, "negative_keywords.txt"), negatives); err != nil {
		return nil, nil, err
	}

	summary := e.summarize(ready, tiers, negatives)
	if err := artifacts.WriteJSON(filepath.Join(outDir, "export_summary.json"), summary); err != nil {
		return nil, nil, err
	}

	e.logger.Info("campaign export complete",
		zap.Int("keywords", len(ready)),
		zap.Int("tiers", len(tiers)),
		zap.Int("negative_keywords", len(negatives)),
	)
	return summary, ready, nil
}

// prepare selects the campaign-ready subset and derives match type, bid
// and tier for each keyword.
func (e *Exporter) prepare(scored []model.Keyword) []model.Keyword {
	ready := make([]model.Keyword, 0, len(scored))
	for i := range scored {
		k := scored[i]
		if k.Intent != model.IntentCommercial && k.Intent != model.IntentTransactional {
			continue
		}
		k.Keyword = model.NormalizeKeyword(k.Keyword)
		if len(k.Keyword) <= 2 {
			continue
		}
		k.MatchType = e.RecommendMatchType(&k)
		k.RecommendedBid = RecommendBid(&k)
		k.CampaignTier = AssignTier(&k)
		ready = append(ready, k)
	}
	e.logger.Info("campaign-ready keywords prepared",
		zap.Int("before", len(scored)),
		zap.Int("after", len(ready)),
	)
	return ready
}

// AssignTier places a keyword in the first matching campaign bucket.
func AssignTier(k *model.Keyword) model.CampaignTier {
	difficulty := k.DifficultyOr(unknownDifficulty)
	switch {
	case difficulty <= 30 && k.SearchVolume >= 100:
		return model.TierEasyWins
	case k.SearchVolume >= 1000:
		return model.TierHighVolume
	case difficulty <= 40:
		return model.TierLongTail
	case difficulty > 60 && k.SearchVolume >= 500:
		return model.TierCompetitive
	default:
		return model.TierGeneral
	}
}

// RecommendMatchType applies the ordered match-type rules.
func (e *Exporter) RecommendMatchType(k *model.Keyword) model.MatchType {
	difficulty := k.DifficultyOr(unknownDifficulty)
	lower := model.NormalizeKeyword(k.Keyword)

	if k.WordCount() >= 4 {
		return model.MatchExact
	}
	if k.SearchVolume > 1000 && difficulty > 60 {
		return model.MatchExact
	}
	for _, phrase := range e.campaign.HighValuePhrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return model.MatchExact
		}
	}
	if k.SearchVolume >= 100 && k.SearchVolume <= 1000 && difficulty >= 30 && difficulty <= 60 {
		return model.MatchPhrase
	}
	if difficulty < 30 {
		return model.MatchBroad
	}
	return model.MatchPhrase
}

// RecommendBid derives a starting bid from market CPC when known, else
// from the difficulty band, adjusted for volume and clamped.
func RecommendBid(k *model.Keyword) float64 {
	difficulty := k.DifficultyOr(unknownDifficulty)

	var bid float64
	if cpc := k.CPCOr(0); cpc > 0 {
		bid = cpc
	} else if difficulty > 70 {
		bid = 3.0
	} else if difficulty > 40 {
		bid = 2.0
	} else {
		bid = 1.0
	}

	if k.SearchVolume > 1000 {
		bid *= 1.2
	} else if k.SearchVolume < 50 {
		bid *= 0.8
	}

	bid = clamp(bid, minBid, maxBid)
	return math.Round(bid*100) / 100
}

// adGroupName resolves the first configured phrase contained in the
// keyword, falling back to the default group.
func (e *Exporter) adGroupName(keyword string) string {
	lower := model.NormalizeKeyword(keyword)
	for i, phrase := range e.campaign.AdGroupPhrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return e.campaign.AdGroupNames[i]
		}
	}
	if e.campaign.DefaultAdGroup != "" {
		return e.campaign.DefaultAdGroup
	}
	return "General"
}

// campaignName renders a tier identifier as a display name.
func (e *Exporter) campaignName(tier model.CampaignTier) string {
	return e.titler.String(strings.ReplaceAll(string(tier), "_", " "))
}

func groupByTier(ready []model.Keyword) map[model.CampaignTier][]model.Keyword {
	tiers := map[model.CampaignTier][]model.Keyword{}
	for i := range ready {
		tiers[ready[i].CampaignTier] = append(tiers[ready[i].CampaignTier], ready[i])
	}
	for _, kws := range tiers {
		sort.SliceStable(kws, func(i, j int) bool {
			if kws[i].TotalScore != kws[j].TotalScore {
				return kws[i].TotalScore > kws[j].TotalScore
			}
			return kws[i].SearchVolume > kws[j].SearchVolume
		})
	}
	return tiers
}

func (e *Exporter) writeGoogleAds(outDir string, tiers map[model.CampaignTier][]model.Keyword) error {
	header := []string{"Campaign", "Ad Group", "Keyword", "Match Type", "Max CPC", "Final URL", "Search Volume", "Competition"}
	for _, tier := range campaignTiers {
		kws := tiers[tier]
		if len(kws) == 0 {
			continue
		}
		rows := make([][]string, 0, len(kws))
		for i := range kws {
			k := &kws[i]
			rows = append(rows, []string{
				e.campaignName(tier),
				e.adGroupName(k.Keyword),
				k.Keyword,
				string(k.MatchType),
				formatBid(k.RecommendedBid),
				e.campaign.LandingPage,
				strconv.FormatInt(k.SearchVolume, 10),
				formatDifficulty(k.Difficulty),
			})
		}
		path := filepath.Join(outDir, "google_ads", fmt.Sprintf("google_ads_%s.csv", tier))
		if err := writeCampaignCSV(path, header, rows); err != nil {
			return err
		}
		e.logger.Info("exported campaign file", zap.String("file", path), zap.Int("keywords", len(kws)))
	}
	return nil
}

func (e *Exporter) writeMicrosoftAds(outDir string, tiers map[model.CampaignTier][]model.Keyword) error {
	header := []string{"Campaign Name", "Ad Group Name", "Keyword", "Match Type", "Bid", "Destination URL", "Search Volume", "Keyword Difficulty"}
	for _, tier := range campaignTiers {
		kws := tiers[tier]
		if len(kws) == 0 {
			continue
		}
		rows := make([][]string, 0, len(kws))
		for i := range kws {
			k := &kws[i]
			rows = append(rows, []string{
				e.campaignName(tier),
				e.adGroupName(k.Keyword),
				k.Keyword,
				string(k.MatchType),
				formatBid(k.RecommendedBid),
				e.campaign.LandingPage,
				strconv.FormatInt(k.SearchVolume, 10),
				formatDifficulty(k.Difficulty),
			})
		}
		path := filepath.Join(outDir, "microsoft_ads", fmt.Sprintf("microsoft_ads_%s.csv", tier))
		if err := writeCampaignCSV(path, header, rows); err != nil {
			return err
		}
		e.logger.Info("exported campaign file", zap.String("file", path), zap.Int("keywords", len(kws)))
	}
	return nil
}

// writeWorkbook writes one xlsx workbook with a sheet per tier.
func (e *Exporter) writeWorkbook(outDir string, tiers map[model.CampaignTier][]model.Keyword) error {
	wb := xlsx.NewFile()
	header := []string{"Campaign", "Ad Group", "Keyword", "Match Type", "Max CPC", "Search Volume", "Keyword Difficulty", "Total Score"}

	for _, tier := range campaignTiers {
		kws := tiers[tier]
		if len(kws) == 0 {
			continue
		}
		sheet, err := wb.AddSheet(e.campaignName(tier))
		if err != nil {
			return eris.Wrapf(err, "export: add sheet for %s", tier)
		}
		hr := sheet.AddRow()
		for _, h := range header {
			hr.AddCell().SetString(h)
		}
		for i := range kws {
			k := &kws[i]
			row := sheet.AddRow()
			row.AddCell().SetString(e.campaignName(tier))
			row.AddCell().SetString(e.adGroupName(k.Keyword))
			row.AddCell().SetString(k.Keyword)
			row.AddCell().SetString(string(k.MatchType))
			row.AddCell().SetFloat(k.RecommendedBid)
			row.AddCell().SetInt64(k.SearchVolume)
			row.AddCell().SetFloat(k.DifficultyOr(unknownDifficulty))
			row.AddCell().SetFloat(k.TotalScore)
		}
	}

	path := filepath.Join(outDir, "campaigns.xlsx")
	if err := wb.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	e.logger.Info("exported workbook", zap.String("file", path))
	return nil
}

// negativeKeywords merges the static list, the configured negatives and
// short cleaned exclusion patterns, deduplicated and sorted.
func (e *Exporter) negativeKeywords() []string {
	seen := map[string]struct{}{}
	add := func(s string) {
		s = model.NormalizeKeyword(s)
		if s == "" {
			return
		}
		seen[s] = struct{}{}
	}

	for _, n := range staticNegativeKeywords {
		add(n)
	}
	for _, n := range e.campaign.NegativeKeywords {
		add(n)
	}
	for _, pattern := range e.filters.ExcludePatterns {
		clean := strings.NewReplacer(`\b`, "", ".*", "").Replace(pattern)
		clean = strings.TrimSpace(clean)
		if clean != "" && len(strings.Fields(clean)) <= 3 {
			add(clean)
		}
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (e *Exporter) summarize(ready []model.Keyword, tiers map[model.CampaignTier][]model.Keyword, negatives []string) *ExportSummary {
	var totalVolume int64
	var bidSum float64
	matchDist := map[string]int{}
	intentDist := map[string]int{}
	for i := range ready {
		totalVolume += ready[i].SearchVolume
		bidSum += ready[i].RecommendedBid
		matchDist[string(ready[i].MatchType)]++
		intentDist[string(ready[i].Intent)]++
	}
	avgBid := bidSum / float64(len(ready))

	tierDist := map[string]int{}
	tierBudgets := map[string]float64{}
	for tier, kws := range tiers {
		tierDist[string(tier)] = len(kws)
		tierBudgets[string(tier)] = e.tierDailyBudget(kws)
	}

	ctr := e.campaign.AssumedCTR
	share := e.campaign.AssumedImprShare
	monthly := avgBid * float64(totalVolume) * ctr * share

	return &ExportSummary{
		ExportOverview: ExportOverview{
			TotalCampaignKeywords:     len(ready),
			TotalMonthlySearchVolume:  totalVolume,
			AverageRecommendedBid:     math.Round(avgBid*100) / 100,
			CampaignTiersCreated:      len(tiers),
			NegativeKeywordsGenerated: len(negatives),
			ExportedAt:                time.Now().UTC().Format(time.RFC3339),
		},
		TierDistribution:      tierDist,
		MatchTypeDistribution: matchDist,
		IntentDistribution:    intentDist,
		BudgetEstimation: BudgetEstimation{
			EstimatedMonthlyBudget: math.Round(monthly*100) / 100,
			RecommendedDailyBudget: math.Round(monthly/30*100) / 100,
			TierDailyBudgets:       tierBudgets,
		},
	}
}

// tierDailyBudget projects a tier's daily spend from assumed CTR and
// impression share with a 2x buffer, floored at 20.
func (e *Exporter) tierDailyBudget(kws []model.Keyword) float64 {
	var volume int64
	var bidSum float64
	for i := range kws {
		volume += kws[i].SearchVolume
		bidSum += kws[i].RecommendedBid
	}
	avgBid := bidSum / float64(len(kws))

	dailyClicks := float64(volume) * e.campaign.AssumedCTR * e.campaign.AssumedImprShare / 30
	budget := math.Max(20.0, dailyClicks*avgBid*2)
	return math.Round(budget*100) / 100
}

func (e *Exporter) formatEnabled(format string) bool {
	for _, f := range e.exportCfg.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

func writeCampaignCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush")
	}
	return f.Close()
}

func formatBid(bid float64) string {
	return strconv.FormatFloat(bid, 'f', 2, 64)
}

func formatDifficulty(d *float64) string {
	if d == nil {
		return ""
	}
	return strconv.FormatFloat(*d, 'f', 1, 64)
}
