package artifacts

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/hawthorn-media/keyword-cli/internal/model"
)

// keywordColumns is the fixed column order of every stage snapshot. A
// blank cell means the value is unknown, not zero.
var keywordColumns = []string{
	"keyword",
	"source",
	"source_domain",
	"search_volume",
	"cpc",
	"keyword_difficulty",
	"main_intent",
	"categories",
	"monthly_searches",
	"seasonal_pattern",
	"peak_month",
	"seasonal_volatility",
	"seasonal_multiplier",
	"is_seasonal",
	"cluster_id",
	"cluster_name",
	"category_cluster",
	"difficulty_tier",
	"volume_score",
	"intent_score",
	"difficulty_score",
	"cpc_score",
	"seasonality_score",
	"total_score",
	"priority_tier",
	"recommended_match_type",
	"recommended_bid",
	"campaign_tier",
}

// WriteKeywordCSV writes a stage snapshot to path, creating parent
// directories as needed.
func WriteKeywordCSV(path string, keywords []model.Keyword) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "artifacts: create snapshot dir")
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "artifacts: create snapshot file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(keywordColumns); err != nil {
		return eris.Wrap(err, "artifacts: write header")
	}

	for i := range keywords {
		row, err := keywordToRow(&keywords[i])
		if err != nil {
			return err
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "artifacts: write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "artifacts: flush snapshot")
	}
	return f.Close()
}

// ReadKeywordCSV loads a stage snapshot written by WriteKeywordCSV.
// Columns are resolved by header name so older snapshots with fewer
// columns still load.
func ReadKeywordCSV(path string) ([]model.Keyword, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifacts: open snapshot %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "artifacts: read header")
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	if _, ok := idx["keyword"]; !ok {
		return nil, eris.Errorf("artifacts: %s has no keyword column", path)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "artifacts: read rows")
	}

	keywords := make([]model.Keyword, 0, len(rows))
	for n, row := range rows {
		kw, err := rowToKeyword(row, idx)
		if err != nil {
			return nil, eris.Wrapf(err, "artifacts: row %d of %s", n+2, path)
		}
		if kw.Keyword == "" {
			continue
		}
		keywords = append(keywords, kw)
	}
	return keywords, nil
}

func keywordToRow(k *model.Keyword) ([]string, error) {
	categories := ""
	if len(k.Categories) > 0 {
		b, err := json.Marshal(k.Categories)
		if err != nil {
			return nil, eris.Wrap(err, "artifacts: marshal categories")
		}
		categories = string(b)
	}
	monthly := ""
	if len(k.MonthlySearches) > 0 {
		b, err := json.Marshal(k.MonthlySearches)
		if err != nil {
			return nil, eris.Wrap(err, "artifacts: marshal monthly searches")
		}
		monthly = string(b)
	}

	return []string{
		k.Keyword,
		k.Source,
		k.SourceDomain,
		strconv.FormatInt(k.SearchVolume, 10),
		formatOptFloat(k.CPC),
		formatOptFloat(k.Difficulty),
		string(k.Intent),
		categories,
		monthly,
		k.SeasonalPattern,
		formatInt(k.PeakMonth),
		formatFloat(k.Volatility),
		formatFloat(k.Multiplier),
		strconv.FormatBool(k.IsSeasonal),
		strconv.Itoa(k.ClusterID),
		k.ClusterName,
		k.CategoryCluster,
		string(k.DifficultyTier),
		formatFloat(k.VolumeScore),
		formatFloat(k.IntentScore),
		formatFloat(k.DifficultyScore),
		formatFloat(k.CPCScore),
		formatFloat(k.SeasonalityScore),
		formatFloat(k.TotalScore),
		string(k.PriorityTier),
		string(k.MatchType),
		formatFloat(k.RecommendedBid),
		string(k.CampaignTier),
	}, nil
}

func rowToKeyword(row []string, idx map[string]int) (model.Keyword, error) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var k model.Keyword
	k.Keyword = get("keyword")
	k.Source = get("source")
	k.SourceDomain = get("source_domain")
	k.Intent = model.ParseIntent(get("main_intent"))
	k.SeasonalPattern = get("seasonal_pattern")
	k.ClusterName = get("cluster_name")
	k.CategoryCluster = get("category_cluster")
	k.DifficultyTier = model.DifficultyTier(get("difficulty_tier"))
	k.PriorityTier = model.PriorityTier(get("priority_tier"))
	k.MatchType = model.MatchType(get("recommended_match_type"))
	k.CampaignTier = model.CampaignTier(get("campaign_tier"))

	var err error
	if k.SearchVolume, err = parseInt64(get("search_volume")); err != nil {
		return k, err
	}
	if k.CPC, err = parseOptFloat(get("cpc")); err != nil {
		return k, err
	}
	if k.Difficulty, err = parseOptFloat(get("keyword_difficulty")); err != nil {
		return k, err
	}
	if k.PeakMonth, err = parseInt(get("peak_month")); err != nil {
		return k, err
	}
	if k.Volatility, err = parseFloat(get("seasonal_volatility")); err != nil {
		return k, err
	}
	if k.Multiplier, err = parseFloat(get("seasonal_multiplier")); err != nil {
		return k, err
	}
	if k.ClusterID, err = parseInt(get("cluster_id")); err != nil {
		return k, err
	}
	if k.VolumeScore, err = parseFloat(get("volume_score")); err != nil {
		return k, err
	}
	if k.IntentScore, err = parseFloat(get("intent_score")); err != nil {
		return k, err
	}
	if k.DifficultyScore, err = parseFloat(get("difficulty_score")); err != nil {
		return k, err
	}
	if k.CPCScore, err = parseFloat(get("cpc_score")); err != nil {
		return k, err
	}
	if k.SeasonalityScore, err = parseFloat(get("seasonality_score")); err != nil {
		return k, err
	}
	if k.TotalScore, err = parseFloat(get("total_score")); err != nil {
		return k, err
	}
	if k.RecommendedBid, err = parseFloat(get("recommended_bid")); err != nil {
		return k, err
	}
	k.IsSeasonal = get("is_seasonal") == "true"

	if s := get("categories"); s != "" {
		if err := json.Unmarshal([]byte(s), &k.Categories); err != nil {
			return k, eris.Wrap(err, "parse categories")
		}
	}
	if s := get("monthly_searches"); s != "" {
		if err := json.Unmarshal([]byte(s), &k.MonthlySearches); err != nil {
			return k, eris.Wrap(err, "parse monthly searches")
		}
	}
	return k, nil
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseInt64(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse int %q", s)
	}
	return v, nil
}

func parseInt(s string) (int, error) {
	v, err := parseInt64(s)
	return int(v), err
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse float %q", s)
	}
	return v, nil
}

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse float %q", s)
	}
	return &v, nil
}
